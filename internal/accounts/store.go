package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/social-autoposter/internal/models"
	"github.com/social-autoposter/pkg/logger"
)

const (
	commentMarker = "#"
	fieldCount    = 4
)

// Store loads posting accounts from a line-oriented credential file
type Store struct {
	path     string
	fallback models.Credentials
	log      *logger.Logger
}

// NewStore creates a store reading path, falling back to a single account built from fallback
func NewStore(path string, fallback models.Credentials, log *logger.Logger) *Store {
	return &Store{
		path:     path,
		fallback: fallback,
		log:      log.WithComponent("accounts"),
	}
}

// Load returns the accounts in file order, numbered from 1. It never returns an empty slice:
// a missing, unreadable or empty file yields the single fallback account.
func (s *Store) Load() []models.Account {
	f, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn().Err(err).Str("file", s.path).Msg("Cannot open accounts file")
		} else {
			s.log.Info().Str("file", s.path).Msg("No accounts file, using default credentials")
		}
		return s.fallbackAccounts()
	}
	defer f.Close()

	accounts, err := Parse(f, func(line int, reason string) {
		s.log.Warn().Int("line", line).Str("reason", reason).Msg("Skipping malformed account line")
	})
	if err != nil {
		s.log.Warn().Err(err).Str("file", s.path).Msg("Failed reading accounts file")
	}

	if len(accounts) == 0 {
		s.log.Warn().Str("file", s.path).Msg("No valid accounts found, using default credentials")
		return s.fallbackAccounts()
	}

	s.log.Info().Int("count", len(accounts)).Msg("Accounts loaded")
	return accounts
}

func (s *Store) fallbackAccounts() []models.Account {
	if !s.fallback.IsComplete() {
		s.log.Warn().Msg("Default credentials are incomplete, posting will be simulated")
	}
	return []models.Account{{ID: 1, Credentials: s.fallback, Fallback: true}}
}

// Parse reads credential lines from r. Blank and comment lines are ignored;
// lines without exactly four non-empty comma-separated fields are reported to skip
// and do not consume an account number. Accounts parsed before a read error are returned.
func Parse(r io.Reader, skip func(line int, reason string)) ([]models.Account, error) {
	var accounts []models.Account

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}

		creds, err := parseLine(line)
		if err != nil {
			if skip != nil {
				skip(lineNo, err.Error())
			}
			continue
		}

		accounts = append(accounts, models.Account{
			ID:          len(accounts) + 1,
			Credentials: creds,
		})
	}

	if err := scanner.Err(); err != nil {
		return accounts, fmt.Errorf("failed to scan credentials: %w", err)
	}
	return accounts, nil
}

func parseLine(line string) (models.Credentials, error) {
	parts := strings.Split(line, ",")
	if len(parts) != fieldCount {
		return models.Credentials{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return models.Credentials{}, fmt.Errorf("field %d is empty", i+1)
		}
	}
	return models.Credentials{
		AppKey:       parts[0],
		AppSecret:    parts[1],
		AccessToken:  parts[2],
		AccessSecret: parts[3],
	}, nil
}
