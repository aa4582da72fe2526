// Package sigv4 реализует подпись запросов к S3-совместимым хранилищам по схеме
// AWS Signature Version 4: заголовок Authorization и presigned URL.
// Пакет не выполняет сетевых вызовов.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	Algorithm       = "AWS4-HMAC-SHA256"
	UnsignedPayload = "UNSIGNED-PAYLOAD"
	DefaultRegion   = "auto"
	DefaultService  = "s3"

	// MaxPresignExpiry - максимальный срок жизни presigned URL, который принимает S3.
	MaxPresignExpiry = 7 * 24 * time.Hour

	terminator      = "aws4_request"
	amzDateFormat   = "20060102T150405Z"
	dateStampFormat = "20060102"

	headerHost          = "host"
	headerContentType   = "content-type"
	headerContentSHA256 = "x-amz-content-sha256"
	headerAmzDate       = "x-amz-date"
)

var (
	ErrMissingCredentials = errors.New("sigv4: access key id and secret access key are required")
	ErrInvalidEndpoint    = errors.New("sigv4: endpoint must be an absolute url")
)

// Config - параметры подписи. Region и Service по умолчанию "auto" и "s3".
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // https://bucket.account.r2.cloudflarestorage.com или http://minio:9000/bucket
	Region          string
	Service         string
	Clock           func() time.Time
}

// Signer вычисляет подписи SigV4 для одного endpoint'а.
type Signer struct {
	accessKeyID     string
	secretAccessKey string
	endpoint        string
	host            string
	basePath        string // префикс path-style адресации, без завершающего '/'
	region          string
	service         string
	now             func() time.Time
}

// HeaderAuth - значения заголовков для подписанного запроса.
type HeaderAuth struct {
	Authorization string
	AmzDate       string
}

func New(cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, ErrMissingCredentials
	}

	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, cfg.Endpoint)
	}

	s := &Signer{
		accessKeyID:     cfg.AccessKeyID,
		secretAccessKey: cfg.SecretAccessKey,
		endpoint:        u.Scheme + "://" + u.Host,
		host:            u.Host,
		basePath:        strings.TrimRight(u.Path, "/"),
		region:          cfg.Region,
		service:         cfg.Service,
		now:             cfg.Clock,
	}
	if s.region == "" {
		s.region = DefaultRegion
	}
	if s.service == "" {
		s.service = DefaultService
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s, nil
}

// Endpoint возвращает scheme://host, к которому относятся подписи.
func (s *Signer) Endpoint() string {
	return s.endpoint
}

// ObjectPath возвращает закодированный путь ключа с учётом префикса endpoint'а.
func (s *Signer) ObjectPath(key string) string {
	return CanonicalURI(s.basePath + "/" + strings.TrimPrefix(key, "/"))
}

// ObjectURL возвращает адрес объекта key без подписи.
func (s *Signer) ObjectURL(key string) string {
	return s.endpoint + s.ObjectPath(key)
}

// Host возвращает значение заголовка host, участвующее в подписи.
func (s *Signer) Host() string {
	return s.host
}

// HeaderAuth подписывает запрос method к path. content-type подписывается, только если передан.
// Тело запроса не хэшируется: используется UNSIGNED-PAYLOAD.
func (s *Signer) HeaderAuth(method, path, contentType string) HeaderAuth {
	now := s.now().UTC()
	amzDate := now.Format(amzDateFormat)
	dateStamp := now.Format(dateStampFormat)

	headers := map[string]string{
		headerHost:          s.host,
		headerContentSHA256: UnsignedPayload,
		headerAmzDate:       amzDate,
	}
	if contentType != "" {
		headers[headerContentType] = contentType
	}
	signed := SignedHeaderNames(headers)

	canonical := CanonicalRequest(method, CanonicalURI(path), "", headers, signed, UnsignedPayload)
	scope := CredentialScope(dateStamp, s.region, s.service)
	signature := s.signature(dateStamp, StringToSign(amzDate, scope, HashHex(canonical)))

	return HeaderAuth{
		Authorization: fmt.Sprintf(
			"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
			Algorithm, s.accessKeyID, scope, strings.Join(signed, ";"), signature,
		),
		AmzDate: amzDate,
	}
}

// SignRequest проставляет в req заголовки x-amz-date, x-amz-content-sha256 и Authorization.
// req должен указывать на endpoint подписанта.
func (s *Signer) SignRequest(req *http.Request, contentType string) {
	auth := s.HeaderAuth(req.Method, req.URL.Path, contentType)

	req.Host = s.host
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Amz-Content-Sha256", UnsignedPayload)
	req.Header.Set("X-Amz-Date", auth.AmzDate)
	req.Header.Set("Authorization", auth.Authorization)
}

// PresignedURL возвращает GET-ссылку на key с подписью в query-параметрах.
// expiry вне диапазона (0, 7 дней] приводится к 7 дням.
func (s *Signer) PresignedURL(key string, expiry time.Duration) string {
	now := s.now().UTC()
	amzDate := now.Format(amzDateFormat)
	dateStamp := now.Format(dateStampFormat)

	if expiry <= 0 || expiry > MaxPresignExpiry {
		expiry = MaxPresignExpiry
	}

	scope := CredentialScope(dateStamp, s.region, s.service)
	query := url.Values{}
	query.Set("X-Amz-Algorithm", Algorithm)
	query.Set("X-Amz-Credential", s.accessKeyID+"/"+scope)
	query.Set("X-Amz-Date", amzDate)
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expiry/time.Second), 10))
	query.Set("X-Amz-SignedHeaders", headerHost)

	path := s.ObjectPath(key)
	canonicalQuery := CanonicalQuery(query)
	canonical := CanonicalRequest(
		http.MethodGet,
		path,
		canonicalQuery,
		map[string]string{headerHost: s.host},
		[]string{headerHost},
		UnsignedPayload,
	)
	signature := s.signature(dateStamp, StringToSign(amzDate, scope, HashHex(canonical)))

	return s.endpoint + path + "?" + canonicalQuery + "&X-Amz-Signature=" + signature
}

func (s *Signer) signature(dateStamp, stringToSign string) string {
	key := DeriveSigningKey(s.secretAccessKey, dateStamp, s.region, s.service)
	return hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))
}

// DeriveSigningKey строит цепочку HMAC: AWS4+secret → date → region → service → aws4_request.
func DeriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(terminator))
}

// CanonicalRequest собирает каноническое представление запроса.
// Имена заголовков приводятся к нижнему регистру и сортируются, значения обрезаются.
func CanonicalRequest(method, path, query string, headers map[string]string, signedHeaders []string, payloadHash string) string {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}

	names := make([]string, 0, len(signedHeaders))
	for _, h := range signedHeaders {
		names = append(names, strings.ToLower(h))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(trimHeaderValue(lowered[name]))
		b.WriteByte('\n')
	}

	return strings.Join([]string{
		method,
		path,
		query,
		b.String(),
		strings.Join(names, ";"),
		payloadHash,
	}, "\n")
}

// StringToSign формирует строку для подписи.
func StringToSign(amzDate, credentialScope, canonicalRequestHash string) string {
	return strings.Join([]string{
		Algorithm,
		amzDate,
		credentialScope,
		canonicalRequestHash,
	}, "\n")
}

// CredentialScope возвращает date/region/service/aws4_request.
func CredentialScope(dateStamp, region, service string) string {
	return dateStamp + "/" + region + "/" + service + "/" + terminator
}

// SignedHeaderNames возвращает отсортированные имена заголовков в нижнем регистре.
func SignedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)
	return names
}

// CanonicalQuery сортирует параметры по ключу и значению и кодирует их по RFC 3986.
func CanonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, uriEncode(k, true)+"="+uriEncode(v, true))
		}
	}

	return strings.Join(parts, "&")
}

// CanonicalURI кодирует путь посегментно, сохраняя '/'.
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return uriEncode(path, false)
}

// HashHex возвращает hex(SHA256(s)).
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func trimHeaderValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

func uriEncode(s string, encodeSlash bool) string {
	const hexUpper = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexUpper[c>>4])
			b.WriteByte(hexUpper[c&0x0f])
		}
	}
	return b.String()
}
