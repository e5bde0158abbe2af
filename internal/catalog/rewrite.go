package catalog

import "strings"

// URLRewriter replaces internal media hostnames with the public media base in
// every string of a decoded JSON payload, whatever its shape.
type URLRewriter struct {
	replacer *strings.Replacer
}

func NewURLRewriter(internalHosts []string, publicBase string) *URLRewriter {
	publicBase = strings.TrimSuffix(publicBase, "/")
	var pairs []string
	for _, host := range internalHosts {
		host = strings.TrimSuffix(strings.TrimSpace(host), "/")
		if host == "" || publicBase == "" || host == publicBase {
			continue
		}
		pairs = append(pairs, host, publicBase)
	}
	if len(pairs) == 0 {
		return &URLRewriter{}
	}
	return &URLRewriter{replacer: strings.NewReplacer(pairs...)}
}

func (r *URLRewriter) Enabled() bool {
	return r != nil && r.replacer != nil
}

// Rewrite walks v in place and returns it. Map keys are left untouched.
func (r *URLRewriter) Rewrite(v any) any {
	if !r.Enabled() {
		return v
	}
	switch t := v.(type) {
	case string:
		return r.replacer.Replace(t)
	case []any:
		for i := range t {
			t[i] = r.Rewrite(t[i])
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = r.Rewrite(val)
		}
		return t
	default:
		return v
	}
}
