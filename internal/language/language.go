package language

import (
	"strings"
	"sync"
)

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultLocale is French — the product launched French-first and every
// localized surface falls back to it.
const DefaultLocale = "fr"

var uiLocales = map[string]string{
	"fr": "Français",
	"en": "English",
	"pl": "Polski",
}

func IsSupported(code string) bool {
	_, ok := uiLocales[code]
	return ok
}

// Normalize lowercases a locale code and maps anything unsupported or empty
// to the default.
func Normalize(code string) string {
	code = strings.ToLower(code)
	if IsSupported(code) {
		return code
	}
	return DefaultLocale
}

func Supported() []Language {
	// stable order for API responses
	codes := []string{"fr", "en", "pl"}
	langs := make([]Language, 0, len(codes))
	for _, code := range codes {
		langs = append(langs, Language{Code: code, Name: uiLocales[code]})
	}
	return langs
}

// Broadcaster fans a locale change out to in-process subscribers, so
// locale-dependent state (caption tracks, rendered shells) re-reads its
// language instead of the whole app being torn down and reloaded.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]func(locale string)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(locale string))}
}

// Subscribe registers fn and returns an unsubscribe func. fn is called
// synchronously on each change; subscribers must not block.
func (b *Broadcaster) Subscribe(fn func(locale string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Broadcaster) Notify(locale string) {
	b.mu.Lock()
	fns := make([]func(string), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(locale)
	}
}
