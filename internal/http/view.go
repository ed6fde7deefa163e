package http

import (
	"time"

	"tracker/internal/controller"
	"tracker/internal/session"
)

type recordPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Author      string `json:"author,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type groupPayload struct {
	Month   string          `json:"month"`
	Label   string          `json:"label"`
	Total   string          `json:"total"`
	Entries []recordPayload `json:"entries"`
}

type draftPayload struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type sessionPayload struct {
	Mode     string        `json:"mode"`
	TargetID string        `json:"target_id,omitempty"`
	Draft    *draftPayload `json:"draft,omitempty"`
}

type viewPayload struct {
	Groups  []groupPayload `json:"groups"`
	Session sessionPayload `json:"session"`
}

func viewPayloadFrom(v controller.View) viewPayload {
	out := viewPayload{
		Groups: make([]groupPayload, 0, len(v.Groups)),
		Session: sessionPayload{
			Mode:     string(v.Session.Mode),
			TargetID: v.Session.TargetID,
		},
	}
	for _, g := range v.Groups {
		gp := groupPayload{
			Month:   g.Month.String(),
			Label:   g.Label(),
			Total:   g.Total.String(),
			Entries: make([]recordPayload, 0, len(g.Entries)),
		}
		for _, rec := range g.Entries {
			gp.Entries = append(gp.Entries, recordPayload{
				ID:          rec.ID,
				Description: rec.Description,
				Amount:      rec.Amount.String(),
				Author:      rec.Author,
				Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		out.Groups = append(out.Groups, gp)
	}
	if v.Session.Mode != session.ModeIdle {
		d := v.Session.Draft
		dp := &draftPayload{
			Description: d.Description,
			Amount:      d.Amount,
		}
		if !d.Timestamp.IsZero() {
			dp.Timestamp = d.Timestamp.UTC().Format(time.RFC3339)
		}
		out.Session.Draft = dp
	}
	return out
}
