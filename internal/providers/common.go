// Package providers holds the built-in value providers.
package providers

import (
	"strings"
	"unicode"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
)

// requireParams fails with a configuration error naming every missing key.
func requireParams(kind string, prop *domain.Property, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := prop.Provider.Params[k]; !ok {
			missing = append(missing, "'"+k+"'")
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.ErrConfiguration, "%s requires %s params", kind, strings.Join(missing, " and "))
	}
	return nil
}

// slug lowercases s and keeps only ASCII letters and digits.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// textArguments slugs every bound value of a text argument, skipping values
// that slug to nothing.
func textArguments(kind string, ctx *provider.Context, name string) ([]string, error) {
	var out []string
	for _, v := range ctx.ArgumentValues(name) {
		s, ok := provider.ToText(v)
		if !ok {
			return nil, errors.Newf(errors.ErrArgumentResolution, "%s: argument %s has no text value", kind, name)
		}
		if s = slug(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// stringID is the identity mapping of providers whose values are plain
// strings.
func stringID(kind string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Newf(errors.ErrArgumentResolution, "%s: %v is not a string", kind, v)
	}
	return s, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
