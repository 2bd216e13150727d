package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"mailledger-backend/internal/emailsync/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user           = "me"
	defaultTimeout = 20 * time.Second
)

// Service talks to the Gmail API and the Google OAuth token endpoint.
// It implements domain.TokenRefresher and domain.MailProvider.
type Service struct {
	oauthConfig *oauth2.Config
	baseURL     string
	timeout     time.Duration
	httpClient  *http.Client
}

// Option configures a Service
type Option func(*Service)

// WithTokenURL overrides the OAuth token endpoint
func WithTokenURL(tokenURL string) Option {
	return func(s *Service) {
		if tokenURL != "" {
			s.oauthConfig.Endpoint.TokenURL = tokenURL
		}
	}
}

// WithBaseURL overrides the Gmail API base URL
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

// WithTimeout bounds every outbound call
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHTTPClient sets the transport used for token and API calls
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

func NewService(clientID, clientSecret string, opts ...Option) *Service {
	endpoint := google.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	s := &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{gmail.GmailReadonlyScope},
		},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withHTTPClient(ctx context.Context) context.Context {
	if s.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	return ctx
}

// RefreshToken exchanges a refresh token for a new access token. A rejection
// by the token endpoint is reported as TOKEN_EXPIRED, a transport failure as
// CONNECTION_FAILED.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*domain.RefreshedToken, error) {
	if refreshToken == "" {
		return nil, domain.NewSyncError(domain.ErrCodeTokenExpired, "no refresh token stored", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// An empty access token makes the source refresh immediately
	src := s.oauthConfig.TokenSource(s.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, ClassifyRefreshError(err)
	}

	refreshed := &domain.RefreshedToken{
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}
	if token.RefreshToken != refreshToken {
		refreshed.RefreshToken = token.RefreshToken
	}
	return refreshed, nil
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	client := oauth2.NewClient(s.withHTTPClient(ctx), oauth2.StaticTokenSource(token))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.baseURL != "" {
		opts = append(opts, option.WithEndpoint(s.baseURL))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListMessageIDs returns one page of message ids matching query
func (s *Service) ListMessageIDs(ctx context.Context, accessToken, query, pageToken string, maxResults int64) ([]string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	srv, err := s.GetGmailService(ctx, accessToken)
	if err != nil {
		return nil, "", ClassifyError(err)
	}

	call := srv.Users.Messages.List(user).Q(query).MaxResults(maxResults).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", ClassifyError(err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, resp.NextPageToken, nil
}

// GetMessage fetches a message in full format and reduces its body to text
func (s *Service) GetMessage(ctx context.Context, accessToken, messageID string) (*domain.CandidateMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	srv, err := s.GetGmailService(ctx, accessToken)
	if err != nil {
		return nil, ClassifyError(err)
	}

	msg, err := srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, ClassifyError(err)
	}
	return convertGmailMessage(msg), nil
}

func convertGmailMessage(msg *gmail.Message) *domain.CandidateMessage {
	candidate := &domain.CandidateMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Date:     time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload == nil {
		candidate.Body = msg.Snippet
		return candidate
	}

	candidate.Subject = getHeader(msg.Payload.Headers, "Subject")
	candidate.From = getHeader(msg.Payload.Headers, "From")
	if raw := getHeader(msg.Payload.Headers, "Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			candidate.Date = t
		}
	}

	plain, htmlBody := getEmailBody(msg.Payload)
	switch {
	case plain != "":
		candidate.Body = collapseWhitespace(plain)
	case htmlBody != "":
		candidate.Body = htmlToText(htmlBody)
	default:
		candidate.Body = msg.Snippet
	}
	return candidate
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// getEmailBody walks the MIME tree and returns the first text/plain and
// text/html parts it finds.
func getEmailBody(payload *gmail.MessagePart) (plain, htmlBody string) {
	var walk func(part *gmail.MessagePart)
	walk = func(part *gmail.MessagePart) {
		if part == nil {
			return
		}
		if part.Body != nil && part.Body.Data != "" {
			data, ok := decodeBody(part.Body.Data)
			if ok {
				switch {
				case strings.HasPrefix(part.MimeType, "text/plain") && plain == "":
					plain = data
				case strings.HasPrefix(part.MimeType, "text/html") && htmlBody == "":
					htmlBody = data
				}
			}
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)
	return plain, htmlBody
}

func decodeBody(data string) (string, bool) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	return "", false
}

var (
	invisibleBlocks = regexp.MustCompile(`(?is)<(?:style|script|head)[^>]*>.*?</(?:style|script|head)>`)
	htmlTags        = regexp.MustCompile(`<[^>]*>`)
)

func htmlToText(body string) string {
	text := invisibleBlocks.ReplaceAllString(body, " ")
	text = htmlTags.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	// html.UnescapeString turns &nbsp; into U+00A0, which strings.Fields treats as a space
	return strings.Join(strings.Fields(s), " ")
}
