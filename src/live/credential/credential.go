// Package credential 将账号 cookie 字符串解析为各平台请求所需的凭据
package credential

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

var (
	ErrInvalidCookies      = errors.New("invalid cookies")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Credential 一个平台账号的登录凭据
type Credential struct {
	Platform string
	UID      string
	CSRF     string
	// Cookies 原始 cookie 字符串
	Cookies string
}

// CookieMap 按键值返回 cookie，重复的键以最后一个为准
func (c *Credential) CookieMap() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return ParseCookies(c.Cookies)
}

// ParseCookies 解析形如 "a=1; b=2" 的 cookie 字符串
func ParseCookies(cookies string) map[string]string {
	kv := make(map[string]string)
	for _, pair := range strings.Split(cookies, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return kv
}

// Parser 将 cookie 字符串解析为凭据
type Parser func(cookies string) (*Credential, error)

var parsers = map[string]Parser{
	"bilibili": parseBilibili,
	"douyin":   parseDouyin,
	"huya":     parseHuya,
	"youtube":  parseYoutube,
}

// Parse 按平台解析 cookie
func Parse(platform, cookies string) (*Credential, error) {
	p, ok := parsers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	c, err := p(cookies)
	if err != nil {
		return nil, err
	}
	c.Platform = platform
	c.Cookies = cookies
	return c, nil
}

// parseBilibili 需要 bili_jct 作为 csrf，DedeUserID 作为 uid
func parseBilibili(cookies string) (*Credential, error) {
	kv := ParseCookies(cookies)
	csrf, ok := kv["bili_jct"]
	if !ok || csrf == "" {
		return nil, fmt.Errorf("%w: bili_jct not found", ErrInvalidCookies)
	}
	uid, ok := kv["DedeUserID"]
	if !ok {
		return nil, fmt.Errorf("%w: DedeUserID not found", ErrInvalidCookies)
	}
	if _, err := strconv.ParseUint(uid, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: DedeUserID %q is not numeric", ErrInvalidCookies, uid)
	}
	return &Credential{UID: uid, CSRF: csrf}, nil
}

// parseDouyin 抖音不需要 csrf，cookie 中也没有稳定的用户 id
func parseDouyin(cookies string) (*Credential, error) {
	if strings.TrimSpace(cookies) == "" {
		return nil, fmt.Errorf("%w: empty cookies", ErrInvalidCookies)
	}
	return &Credential{UID: randomUID(), CSRF: ""}, nil
}

func parseHuya(cookies string) (*Credential, error) {
	kv := ParseCookies(cookies)
	if len(kv) == 0 {
		return nil, fmt.Errorf("%w: empty cookies", ErrInvalidCookies)
	}
	uid := kv["yyuid"]
	if _, err := strconv.ParseUint(uid, 10, 64); err != nil {
		uid = randomUID()
	}
	return &Credential{UID: uid}, nil
}

func parseYoutube(cookies string) (*Credential, error) {
	if len(ParseCookies(cookies)) == 0 {
		return nil, fmt.Errorf("%w: empty cookies", ErrInvalidCookies)
	}
	return &Credential{UID: randomUID()}, nil
}

func randomUID() string {
	return strconv.FormatInt(10000+rand.Int64N(1<<31-10000), 10)
}
