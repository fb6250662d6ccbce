package source

import (
	"bytes"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTTPOptions to wspólne ustawienia klienta portali.
type HTTPOptions struct {
	BaseURL          string
	Timeout          time.Duration
	CloudflareBypass bool
}

// NewHTTPClient returns a resty client with a cookie jar, so a login
// session survives between requests. Redirects stay on the portal host.
func NewHTTPClient(opts HTTPOptions) (*resty.Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(u.Scheme + "://" + u.Host)
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("User-Agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(u.Hostname()))
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	client.SetTimeout(opts.Timeout)
	return client, nil
}

// Document parses an HTML response, honouring the declared charset
// (portale lubią windows-1252).
func Document(res *resty.Response) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode html: %w", err)
	}
	return goquery.NewDocumentFromReader(r)
}
