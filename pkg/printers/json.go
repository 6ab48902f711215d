package printers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/session"
)

// MomentJSON is the transport projection of a moment.
type MomentJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Symbol      string `json:"symbol"`
	CreatedAt   string `json:"createdAt,omitempty"`
	CreatorID   string `json:"creatorId"`
	CreatorName string `json:"creatorName"`
}

type JournalEntryJSON struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	CreatedAt   string `json:"createdAt,omitempty"`
	CreatorID   string `json:"creatorId"`
	CreatorName string `json:"creatorName"`
}

type PurposeJSON struct {
	Text          string `json:"text"`
	LastUpdatedAt string `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy string `json:"lastUpdatedBy,omitempty"`
}

type SessionJSON struct {
	State       string `json:"state"`
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

func ToMomentJSON(m record.Moment) MomentJSON {
	return MomentJSON{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Type:        string(m.Type),
		Symbol:      m.Glyph().Symbol,
		CreatedAt:   m.CreatedAt.String(),
		CreatorID:   m.CreatorID,
		CreatorName: byName(m.CreatorName),
	}
}

func ToJournalEntryJSON(e record.JournalEntry) JournalEntryJSON {
	return JournalEntryJSON{
		ID:          e.ID,
		Text:        e.Text,
		CreatedAt:   e.CreatedAt.String(),
		CreatorID:   e.CreatorID,
		CreatorName: byName(e.CreatorName),
	}
}

func ToPurposeJSON(p record.Purpose) PurposeJSON {
	return PurposeJSON{Text: p.Text, LastUpdatedAt: p.LastUpdatedAt.String(), LastUpdatedBy: p.LastUpdatedBy}
}

func ToSessionJSON(s session.Snapshot) SessionJSON {
	return SessionJSON{State: s.State.String(), UserID: s.UserID, DisplayName: s.DisplayName}
}

// JSON writes v as indented JSON.
func JSON(out io.Writer, v any) error {
	if out == nil {
		out = color.Output
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
