package certificates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAllocation wraps counter-store failures. The increment is
// transactional: on error the counter is untouched and only the current
// recipient is aborted.
var ErrAllocation = errors.New("serial allocation failed")

// typeCodes maps a template's target type to the code embedded in serials.
var typeCodes = map[string]string{
	"GENERAL":                 "GEN",
	"EVENT_PARTICIPANT":       "PART",
	"EVENT_WINNER":            "WIN",
	"NON_CONTEST_PARTICIPANT": "NCP",
	"QUIZ_PARTICIPANT":        "QPART",
	"QUIZ_WINNER":             "QWIN",
}

// CounterStore issues the next sequence value for a scope. Implementations
// must make Next atomic: two concurrent callers for the same scope never
// observe the same value.
type CounterStore interface {
	Next(ctx context.Context, templateID uint, targetType string, year int) (int64, error)
	Current(ctx context.Context, templateID uint, targetType string, year int) (int64, error)
}

// Allocator issues serial numbers like CT25/PART/T5/000042: brand prefix +
// two-digit year, target-type code, template scope, zero-padded sequence.
type Allocator struct {
	store  CounterStore
	prefix string
}

func NewAllocator(store CounterStore, prefix string) *Allocator {
	return &Allocator{store: store, prefix: prefix}
}

// Next allocates and formats a fresh serial for the scope. year <= 0 means
// the current year. Regeneration paths never call this; existing serials
// are reused by the orchestrator.
func (a *Allocator) Next(ctx context.Context, templateID uint, targetType string, year int) (string, error) {
	code, ok := typeCodes[targetType]
	if !ok {
		return "", fmt.Errorf("%w: unknown target type %q", ErrAllocation, targetType)
	}
	if year <= 0 {
		year = time.Now().Year()
	}

	seq, err := a.store.Next(ctx, templateID, targetType, year)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	return a.format(code, templateID, year, seq), nil
}

// Preview formats the serial the next allocation would produce without
// touching the counter. For display only; not a reservation.
func (a *Allocator) Preview(ctx context.Context, templateID uint, targetType string, year int) (string, error) {
	code, ok := typeCodes[targetType]
	if !ok {
		return "", fmt.Errorf("%w: unknown target type %q", ErrAllocation, targetType)
	}
	if year <= 0 {
		year = time.Now().Year()
	}

	current, err := a.store.Current(ctx, templateID, targetType, year)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	return a.format(code, templateID, year, current+1), nil
}

func (a *Allocator) format(code string, templateID uint, year int, seq int64) string {
	return fmt.Sprintf("%s%02d/%s/T%d/%06d", a.prefix, year%100, code, templateID, seq)
}

// ParsedSerial is the decomposition of a well-formed serial number.
type ParsedSerial struct {
	Prefix     string
	Year       int
	TypeCode   string
	TemplateID uint
	Sequence   int64
}

var serialPattern = regexp.MustCompile(`^([A-Z]+)(\d{2})/([A-Z]+)/T(\d+)/(\d{6})$`)

// ParseSerial decodes a serial number, returning nil when malformed.
func ParseSerial(serial string) *ParsedSerial {
	m := serialPattern.FindStringSubmatch(serial)
	if m == nil {
		return nil
	}

	code := m[3]
	valid := false
	for _, c := range typeCodes {
		if c == code {
			valid = true
			break
		}
	}
	if !valid {
		return nil
	}

	yearShort, _ := strconv.Atoi(m[2])
	templateID, _ := strconv.ParseUint(m[4], 10, 32)
	seq, _ := strconv.ParseInt(m[5], 10, 64)

	return &ParsedSerial{
		Prefix:     m[1],
		Year:       2000 + yearShort,
		TypeCode:   code,
		TemplateID: uint(templateID),
		Sequence:   seq,
	}
}

// ValidSerial reports whether a serial matches the issued format.
func (a *Allocator) ValidSerial(serial string) bool {
	parsed := ParseSerial(serial)
	return parsed != nil && parsed.Prefix == a.prefix
}

// gormCounterStore backs the allocator with a certificate_serials row per
// scope. Next runs a single transaction holding a row lock for the shortest
// possible critical section: select, increment, write.
type gormCounterStore struct {
	db *gorm.DB
}

func NewCounterStore(db *gorm.DB) CounterStore {
	return &gormCounterStore{db: db}
}

func (s *gormCounterStore) Next(ctx context.Context, templateID uint, targetType string, year int) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter SerialCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("template_id = ? AND target_type = ? AND year = ?", templateID, targetType, year).
			First(&counter).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = SerialCounter{
				TemplateID:   templateID,
				TargetType:   targetType,
				Year:         year,
				LastSequence: 1,
			}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			counter.LastSequence++
			if err := tx.Save(&counter).Error; err != nil {
				return err
			}
		}

		next = counter.LastSequence
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *gormCounterStore) Current(ctx context.Context, templateID uint, targetType string, year int) (int64, error) {
	var counter SerialCounter
	err := s.db.WithContext(ctx).
		Where("template_id = ? AND target_type = ? AND year = ?", templateID, targetType, year).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastSequence, nil
}
