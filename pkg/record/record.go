// Package record defines the three record kinds journey stores: moments,
// journal entries and the shared purpose document.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"tableflip.dev/journey/pkg/backend"
)

var (
	// ErrBlank reports an empty or whitespace-only required text field.
	ErrBlank = errors.New("record: text is required")
	// ErrDecode reports a stored document that could not be read.
	ErrDecode = errors.New("record: undecodable document")
)

// AnonymousName is stored as the creator name when the author has not set
// a display name.
const AnonymousName = "Anonymous"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrBlank, strings.ToLower(verrs[0].Field()))
	}
	return err
}

func decode(doc backend.Document, into any) error {
	b, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, doc.ID, err)
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, doc.ID, err)
	}
	return nil
}

// Moment is a highlight on the shared timeline.
type Moment struct {
	ID          string     `json:"-"`
	Title       string     `json:"title" validate:"nonblank"`
	Description string     `json:"description,omitempty"`
	Type        MomentType `json:"type"`
	CreatedAt   Timestamp  `json:"createdAt"`
	CreatorID   string     `json:"creatorId"`
	CreatorName string     `json:"creatorName"`
}

// DecodeMoment builds a Moment from a stored document, coercing the type.
func DecodeMoment(doc backend.Document) (Moment, error) {
	m := Moment{}
	if err := decode(doc, &m); err != nil {
		return Moment{}, err
	}
	m.ID = doc.ID
	m.Type = ParseMomentType(string(m.Type))
	if err := check(&m); err != nil {
		return Moment{}, fmt.Errorf("moment %s: %w", doc.ID, err)
	}
	return m, nil
}

func (m Moment) RecordID() string { return m.ID }

func (m Moment) Creator() string { return m.CreatorID }

func (m Moment) Glyph() Glyph { return m.Type.Glyph() }

// JournalEntry is a free text journal line.
type JournalEntry struct {
	ID          string    `json:"-"`
	Text        string    `json:"text" validate:"nonblank"`
	CreatedAt   Timestamp `json:"createdAt"`
	CreatorID   string    `json:"creatorId"`
	CreatorName string    `json:"creatorName"`
}

func DecodeJournalEntry(doc backend.Document) (JournalEntry, error) {
	e := JournalEntry{}
	if err := decode(doc, &e); err != nil {
		return JournalEntry{}, err
	}
	e.ID = doc.ID
	if err := check(&e); err != nil {
		return JournalEntry{}, fmt.Errorf("journal entry %s: %w", doc.ID, err)
	}
	return e, nil
}

func (e JournalEntry) RecordID() string { return e.ID }

func (e JournalEntry) Creator() string { return e.CreatorID }

// Purpose is the singleton shared purpose statement. Text may be empty when
// the document has never been written.
type Purpose struct {
	ID            string    `json:"-"`
	Text          string    `json:"text"`
	LastUpdatedAt Timestamp `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

func DecodePurpose(doc backend.Document) (Purpose, error) {
	p := Purpose{}
	if err := decode(doc, &p); err != nil {
		return Purpose{}, err
	}
	p.ID = doc.ID
	return p, nil
}

func (p Purpose) RecordID() string { return p.ID }

// Creator is the last editor; the purpose is shared and not owned.
func (p Purpose) Creator() string { return p.LastUpdatedBy }
