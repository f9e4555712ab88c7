// Package mailbox retrieves notification emails over IMAP.
package mailbox

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// AuthError indicates the IMAP server rejected the login credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Config holds the connection settings for a mailbox session.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string

	// Mailbox is the folder to select, typically "INBOX".
	Mailbox string

	// Sender restricts searches to messages from this address.
	Sender string

	// Peek fetches bodies without setting the \Seen flag. The default
	// (false) matches the notification-inbox workflow, where a fetched
	// message counting as read is the point.
	Peek bool
}

// Session is a single authenticated IMAP connection with the
// configured mailbox selected. It is not safe for concurrent use; the
// driver owns it for the whole run.
type Session struct {
	client *imapclient.Client
	cfg    Config
}

// Dial connects over implicit TLS, authenticates, and selects the
// mailbox. The caller must Close the returned session.
func Dial(cfg Config) (*Session, error) {
	addr := cfg.Host + ":" + cfg.Port

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{Username: cfg.Username, Err: err}
	}

	if _, err := client.Select(cfg.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", cfg.Mailbox, err)
	}

	return &Session{client: client, cfg: cfg}, nil
}

// Close logs out and drops the connection.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}

// Search returns the UIDs of messages from the configured sender, in
// mailbox order. Unless includeSeen is true, only unread messages are
// returned.
func (s *Session) Search(includeSeen bool) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: s.cfg.Sender},
		},
	}
	if !includeSeen {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages from %s: %w", s.cfg.Sender, err)
	}

	return searchData.AllUIDs(), nil
}

// Fetch retrieves the full raw message for the given UID. Without
// Peek, the fetch sets the \Seen flag server-side.
func (s *Session) Fetch(uid imap.UID) ([]byte, error) {
	bodySection := &imap.FetchItemBodySection{Peek: s.cfg.Peek}

	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message UID %d: %w", uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}

	return raw, nil
}
