// Package verification checks a submitted contact against existing
// registrations. It never creates or mutates student records.
package verification

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	studentRepo "workshophub/database/repository/student"
	"workshophub/models"
	"workshophub/utils"

	"go.uber.org/zap"
)

// Method names the kind of contact submitted.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
)

// Outcome tags a verification Result.
type Outcome string

const (
	Found    Outcome = "found"
	NotFound Outcome = "not_found"
	Invalid  Outcome = "invalid"
)

// Result of a verification. Student is set only for Found; Reason only for
// Invalid and NotFound, and is safe to show to the attendee.
type Result struct {
	Outcome Outcome         `json:"outcome"`
	Student *models.Student `json:"student,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

type Gate struct {
	students studentRepo.StudentRepository
	logger   *zap.Logger
}

func NewGate(students studentRepo.StudentRepository, logger *zap.Logger) *Gate {
	return &Gate{students: students, logger: logger}
}

// Verify validates the contact format and, when valid, looks it up. A store
// failure is returned as an error; the caller may retry.
func (g *Gate) Verify(ctx context.Context, method Method, value string) (Result, error) {
	var (
		normalized string
		find       func(context.Context, string) ([]models.Student, error)
	)

	switch method {
	case MethodEmail:
		email, ok := NormalizeEmail(value)
		if !ok {
			return Result{Outcome: Invalid, Reason: "Please enter a valid email address."}, nil
		}
		normalized, find = email, g.students.FindByEmail
	case MethodPhone:
		phone, ok := NormalizePhone(value)
		if !ok {
			return Result{Outcome: Invalid, Reason: "Please enter a valid 10-digit phone number."}, nil
		}
		normalized, find = phone, g.students.FindByPhone
	default:
		return Result{Outcome: Invalid, Reason: "Choose email or phone to verify."}, nil
	}

	matches, err := find(ctx, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("student lookup failed: %w", err)
	}
	if len(matches) == 0 {
		return Result{Outcome: NotFound, Reason: "We couldn't find a registration with those details."}, nil
	}

	chosen := pickMostRecent(matches)
	if len(matches) > 1 {
		g.logger.Warn("multiple registrations share a contact",
			zap.String("method", string(method)),
			zap.String("contactFingerprint", utils.Fingerprint(normalized)),
			zap.Int("matches", len(matches)),
			zap.String("chosenStudentId", chosen.ID))
	}
	return Result{Outcome: Found, Student: &chosen}, nil
}

// pickMostRecent prefers the latest registration; ties go to the greatest id.
func pickMostRecent(students []models.Student) models.Student {
	sorted := make([]models.Student, len(students))
	copy(sorted, students)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted[0]
}

// NormalizeEmail trims and lowercases an address and checks it has a local
// part and a domain.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", false
	}
	return email, true
}

// NormalizePhone strips formatting and the country/trunk prefix and requires
// exactly ten digits to remain.
func NormalizePhone(raw string) (string, bool) {
	var digits strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	d := digits.String()
	switch {
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		d = d[2:]
	case len(d) == 11 && strings.HasPrefix(d, "0"):
		d = d[1:]
	}
	if len(d) != 10 {
		return "", false
	}
	return d, true
}
