// Package i18n serves translated messages for the languages the backend ships.
package i18n

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const FallbackLocale = "en-US"

var (
	fallbackTag = language.MustParse(FallbackLocale)
	available   = []language.Tag{fallbackTag, language.MustParse("es-ES")}
	matcher     = language.NewMatcher(available)
	messages    = buildCatalog()
)

// Translations prints messages for one language
type Translations struct {
	tag     language.Tag
	printer *message.Printer
}

func newTranslations(tag language.Tag, cat catalog.Catalog) *Translations {
	return &Translations{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

// Gettext returns key translated, formatted with args when given
func (t *Translations) Gettext(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Language is the BCP 47 name of the translations language, en-US style
func (t *Translations) Language() string {
	return t.tag.String()
}

// I18N keeps the active translations and a cache of every language loaded so far.
type I18N struct {
	mu         sync.RWMutex
	configured language.Tag
	current    *Translations
	cache      map[language.Tag]*Translations
}

// New returns an I18N using the fallback language until Initialize is called.
func New() *I18N {
	i := &I18N{
		configured: fallbackTag,
		cache:      map[language.Tag]*Translations{},
	}
	i.current = i.load(fallbackTag)
	return i
}

// Initialize makes lang the configured language and activates it. Unknown languages keep
// the fallback.
func (i *I18N) Initialize(lang string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if tag, ok := parse(lang); ok {
		i.configured = tag
	}
	i.current = i.loadLocked(i.configured)
}

// SetLang activates lang. Unknown languages are ignored.
func (i *I18N) SetLang(lang string) {
	tag, ok := parse(lang)
	if !ok {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = i.loadLocked(tag)
}

// ResetLang goes back to the configured language
func (i *I18N) ResetLang() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = i.loadLocked(i.configured)
}

// Use runs fn with lang active and restores the previous translations afterwards
func (i *I18N) Use(lang string, fn func()) {
	i.mu.Lock()
	previous := i.current
	if tag, ok := parse(lang); ok {
		i.current = i.loadLocked(tag)
	}
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.current = previous
		i.mu.Unlock()
	}()
	fn()
}

// Translations returns the active translations
func (i *I18N) Translations() *Translations {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.current
}

// For returns the translations of lang without changing the active ones. Unknown languages
// get the configured language.
func (i *I18N) For(lang string) *Translations {
	tag, ok := parse(lang)
	i.mu.Lock()
	defer i.mu.Unlock()
	if !ok {
		tag = i.configured
	}
	return i.loadLocked(tag)
}

// Negotiate picks the best available language for an Accept-Language header value. It
// returns the configured language when nothing matches.
func (i *I18N) Negotiate(acceptLanguage string) string {
	i.mu.RLock()
	configured := i.configured
	i.mu.RUnlock()

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return configured.String()
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return configured.String()
	}
	return available[index].String()
}

// CacheSize is the number of languages loaded so far
func (i *I18N) CacheSize() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.cache)
}

// IsLanguageAvailable accepts both en_US and en-US forms
func IsLanguageAvailable(lang string) bool {
	_, ok := parse(lang)
	return ok
}

// AvailableLanguages lists the shipped languages, fallback first
func AvailableLanguages() []string {
	out := make([]string, 0, len(available))
	for _, tag := range available {
		out = append(out, tag.String())
	}
	return out
}

func (i *I18N) load(tag language.Tag) *Translations {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadLocked(tag)
}

func (i *I18N) loadLocked(tag language.Tag) *Translations {
	if t, ok := i.cache[tag]; ok {
		return t
	}
	t := newTranslations(tag, messages)
	i.cache[tag] = t
	return t
}

func parse(lang string) (language.Tag, bool) {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		return language.Und, false
	}
	for _, a := range available {
		if a == tag {
			return a, true
		}
	}
	return language.Und, false
}

type ctxKey struct{}

// WithTranslations stores t in ctx for request scoped lookups
func WithTranslations(ctx context.Context, t *Translations) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the translations stored by WithTranslations, or the fallback ones
func FromContext(ctx context.Context) *Translations {
	if t, ok := ctx.Value(ctxKey{}).(*Translations); ok && t != nil {
		return t
	}
	return fallbackTranslations
}

var fallbackTranslations = newTranslations(fallbackTag, messages)
