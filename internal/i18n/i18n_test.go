package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUsesFallback(t *testing.T) {
	i := New()
	assert.Equal(t, FallbackLocale, i.Translations().Language())
	assert.Equal(t, 1, i.CacheSize())
}

func TestInitialize(t *testing.T) {
	i := New()
	i.Initialize("es_ES")
	assert.Equal(t, "es-ES", i.Translations().Language())
	assert.Equal(t, 2, i.CacheSize())

	same := New()
	same.Initialize("en_US")
	assert.Equal(t, "en-US", same.Translations().Language())
	assert.Equal(t, 1, same.CacheSize())

	unknown := New()
	unknown.Initialize("xx")
	assert.Equal(t, FallbackLocale, unknown.Translations().Language())
}

func TestSetAndResetLang(t *testing.T) {
	i := New()
	i.Initialize("en-US")

	i.SetLang("es_ES")
	assert.Equal(t, "es-ES", i.Translations().Language())
	assert.Equal(t, 2, i.CacheSize())

	i.SetLang("invalid_lang")
	assert.Equal(t, "es-ES", i.Translations().Language())

	i.ResetLang()
	assert.Equal(t, "en-US", i.Translations().Language())
}

func TestUse(t *testing.T) {
	i := New()
	i.Initialize("es-ES")

	i.Use("en_US", func() {
		assert.Equal(t, "en-US", i.Translations().Language())
	})
	assert.Equal(t, "es-ES", i.Translations().Language())
}

func TestIsLanguageAvailable(t *testing.T) {
	assert.True(t, IsLanguageAvailable("en_US"))
	assert.True(t, IsLanguageAvailable("es-ES"))
	assert.False(t, IsLanguageAvailable("invalid_lang"))
	assert.False(t, IsLanguageAvailable("fr-FR"))
	assert.Equal(t, []string{"en-US", "es-ES"}, AvailableLanguages())
}

func TestGettext(t *testing.T) {
	i := New()

	en := i.For("en-US")
	assert.Equal(t, MsgNotFound, en.Gettext(MsgNotFound))
	assert.Equal(t, "Field email is not valid", en.Gettext(MsgInvalidField, "email"))

	spanish := i.For("es_ES")
	assert.Equal(t, "No encontrado", spanish.Gettext(MsgNotFound))
	assert.Equal(t, "El campo email no es válido", spanish.Gettext(MsgInvalidField, "email"))

	// For never changes the active language
	assert.Equal(t, FallbackLocale, i.Translations().Language())
	assert.Equal(t, FallbackLocale, i.For("klingon").Language())
}

func TestNegotiate(t *testing.T) {
	i := New()
	assert.Equal(t, "es-ES", i.Negotiate("es-ES,es;q=0.9,en;q=0.8"))
	assert.Equal(t, "en-US", i.Negotiate(""))
	assert.Equal(t, "en-US", i.Negotiate("en-GB"))

	i.Initialize("es-ES")
	assert.Equal(t, "es-ES", i.Negotiate(""))
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, FallbackLocale, FromContext(ctx).Language())

	spanish := New().For("es-ES")
	assert.Equal(t, "es-ES", FromContext(WithTranslations(ctx, spanish)).Language())
}
