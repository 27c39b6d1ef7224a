// Package media holds platform-specific knowledge about media URLs: which
// CDN nodes to avoid, which mirrors to prefer, and which request headers a
// platform's CDN expects.
package media

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/phrazzld/clipscribe/internal/domain"
)

// DefaultUserAgent is sent with media requests when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BilibiliMirrors are the stable Bilibili CDN mirrors, most stable first.
var BilibiliMirrors = []string{
	"upos-sz-mirrorali.bilivideo.com",
	"upos-sz-mirrorcos.bilivideo.com",
	"upos-sz-mirrorhw.bilivideo.com",
	"upos-sz-mirrorbd.bilivideo.com",
}

// IsPCDN reports whether rawURL points at a Bilibili peer CDN node. These
// nodes frequently refuse or throttle direct requests.
func IsPCDN(rawURL string) bool {
	return strings.Contains(rawURL, "mcdn.bilivideo") || strings.Contains(rawURL, ".szbdyd.com")
}

// FilterBilibiliURLs reorders and rewrites a Bilibili URL list so that
// mirror nodes are tried first. Existing mirror URLs win; with fewer than two
// mirrors the upos URLs follow them. Without mirrors, upos (or else bcache)
// URLs have their host replaced by a mirror, round-robin. Any other list is
// returned unchanged.
func FilterBilibiliURLs(urls []string) []string {
	if len(urls) == 0 {
		return urls
	}

	type candidate struct {
		parsed   *url.URL
		original string
	}
	var mirror, upos, bcache []candidate

	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		host := u.Hostname()
		osParam := u.Query().Get("os")
		c := candidate{parsed: u, original: raw}

		switch {
		case strings.Contains(host, "mirror") && strings.HasSuffix(osParam, "bv"):
			mirror = append(mirror, c)
		case osParam == "upos":
			upos = append(upos, c)
		case strings.HasPrefix(host, "cn") && osParam == "bcache":
			bcache = append(bcache, c)
		}
	}

	originals := func(cs []candidate) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.original)
		}
		return out
	}

	if len(mirror) > 0 {
		if len(mirror) < 2 && len(upos) > 0 {
			return append(originals(mirror), originals(upos)...)
		}
		return originals(mirror)
	}

	source := upos
	if len(source) == 0 {
		source = bcache
	}
	if len(source) == 0 {
		return urls
	}

	out := make([]string, 0, len(source))
	for i, c := range source {
		rewritten := *c.parsed
		rewritten.Host = BilibiliMirrors[i%len(BilibiliMirrors)]
		if port := c.parsed.Port(); port != "" {
			rewritten.Host += ":" + port
		}
		out = append(out, rewritten.String())
	}
	return out
}

// Headers returns the request headers a platform's CDN expects. userAgent
// may be empty to use DefaultUserAgent.
func Headers(platform, userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	h.Set("Accept-Encoding", "identity")

	var origin string
	switch platform {
	case domain.PlatformBilibili:
		origin = "https://www.bilibili.com"
	case domain.PlatformDouyin:
		origin = "https://www.douyin.com"
	case domain.PlatformXiaohongshu:
		origin = "https://www.xiaohongshu.com"
	}
	if origin != "" {
		h.Set("Referer", origin+"/")
		h.Set("Origin", origin)
	}
	return h
}
