// Package urischeme resolves relative MPD/segment references against a
// base URI and munges query strings, per RFC 3986 §5.3. Resolution itself
// is delegated to net/url (dot-segment removal included); Resolve only
// overrides the fragment, which net/url carries over from the base when
// the reference is empty.
package urischeme

import (
	"net/url"
	"strings"
)

// Resolve resolves ref against base following RFC 3986 §5.3.
func Resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	resolved := baseURL.ResolveReference(refURL)
	// The target's fragment is always the reference's; net/url keeps the
	// base fragment when the reference is empty.
	resolved.Fragment = refURL.Fragment
	resolved.RawFragment = refURL.RawFragment
	return resolved.String(), nil
}

// GetQueryParam returns the first value of name in uri's query component,
// and whether it was present.
func GetQueryParam(uri, name string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	values := u.Query()
	if vs, ok := values[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// RemoveQueryParam returns uri with every occurrence of the named query
// parameter removed, preserving the relative order of the parameters that
// remain. It is idempotent: removing an absent parameter is a no-op.
func RemoveQueryParam(uri, name string) string {
	idx := strings.IndexAny(uri, "?")
	if idx < 0 {
		return uri
	}
	fragIdx := strings.IndexByte(uri[idx:], '#')
	var query, fragment, prefix string
	prefix = uri[:idx]
	if fragIdx >= 0 {
		query = uri[idx+1 : idx+fragIdx]
		fragment = uri[idx+fragIdx:]
	} else {
		query = uri[idx+1:]
	}

	pairs := strings.Split(query, "&")
	kept := pairs[:0]
	for _, p := range pairs {
		if p == "" {
			continue
		}
		key := p
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			key = p[:eq]
		}
		if decodeQueryKey(key) == name {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return prefix + fragment
	}
	return prefix + "?" + strings.Join(kept, "&") + fragment
}

func decodeQueryKey(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// DecodeQueryComponent decodes a query-string component: '+' becomes a
// space and %XX hex escapes are unescaped.
func DecodeQueryComponent(s string) (string, error) {
	return url.QueryUnescape(s)
}
