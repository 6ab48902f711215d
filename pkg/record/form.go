package record

import (
	"strings"

	"tableflip.dev/journey/pkg/backend"
)

// Author stamps writes with the acting session.
type Author struct {
	UserID      string
	DisplayName string
}

// Name returns the display name or AnonymousName.
func (a Author) Name() string {
	if n := strings.TrimSpace(a.DisplayName); n != "" {
		return n
	}
	return AnonymousName
}

func created(fields map[string]any, a Author) map[string]any {
	fields["createdAt"] = backend.ServerTimestamp
	fields["creatorId"] = a.UserID
	fields["creatorName"] = a.Name()
	return fields
}

// MomentForm holds the editable fields of a moment.
type MomentForm struct {
	Title       string `validate:"nonblank"`
	Description string
	Type        MomentType
}

func NewMomentForm() MomentForm {
	return MomentForm{Type: DefaultMomentType}
}

// FormFromMoment seeds an edit form from an existing moment.
func FormFromMoment(m Moment) MomentForm {
	return MomentForm{Title: m.Title, Description: m.Description, Type: m.Type}
}

func (f MomentForm) Validate() error { return check(&f) }

// CreateFields is the full payload of a new moment.
func (f MomentForm) CreateFields(a Author) map[string]any {
	return created(f.UpdateFields(a), a)
}

// UpdateFields is the partial payload of an edit; creator and creation time
// are never part of it.
func (f MomentForm) UpdateFields(Author) map[string]any {
	return map[string]any{
		"title":       strings.TrimSpace(f.Title),
		"description": strings.TrimSpace(f.Description),
		"type":        string(ParseMomentType(string(f.Type))),
	}
}

// JournalForm holds the editable field of a journal entry.
type JournalForm struct {
	Text string `validate:"nonblank"`
}

func FormFromJournalEntry(e JournalEntry) JournalForm {
	return JournalForm{Text: e.Text}
}

func (f JournalForm) Validate() error { return check(&f) }

func (f JournalForm) CreateFields(a Author) map[string]any {
	return created(f.UpdateFields(a), a)
}

func (f JournalForm) UpdateFields(Author) map[string]any {
	return map[string]any{"text": strings.TrimSpace(f.Text)}
}

// PurposeForm holds the purpose statement. Blank text clears it.
type PurposeForm struct {
	Text string
}

func FormFromPurpose(p Purpose) PurposeForm {
	return PurposeForm{Text: p.Text}
}

func (f PurposeForm) Validate() error { return nil }

// CreateFields and UpdateFields are the same upsert payload for the
// singleton purpose document.
func (f PurposeForm) CreateFields(a Author) map[string]any {
	return f.UpdateFields(a)
}

func (f PurposeForm) UpdateFields(a Author) map[string]any {
	return map[string]any{
		"text":          strings.TrimSpace(f.Text),
		"lastUpdatedAt": backend.ServerTimestamp,
		"lastUpdatedBy": a.UserID,
	}
}
