// Package export renders report data as CSV downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"harvestlog/internal/models"
	"harvestlog/internal/repository"
)

// csvSafe neutralizes spreadsheet formula injection. Cells starting with
// =, +, - or @ get a leading apostrophe so Excel treats them as text.
func csvSafe(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	if strings.HasPrefix(s, "\t") || strings.HasPrefix(s, "\r") {
		return "'" + strings.TrimLeft(s, "\t\r")
	}
	return s
}

// Leaderboard renders leaderboard rows with the reporting period stamped on
// every line so an exported file is self-describing.
func Leaderboard(rows []repository.LeaderboardRow, from, to time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"rank", "evangelist", "email", "souls_count", "from", "to"}); err != nil {
		return nil, err
	}
	fromStr := from.UTC().Format("2006-01-02")
	toStr := to.UTC().Format("2006-01-02")
	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			csvSafe(row.FullName),
			csvSafe(row.Email),
			strconv.FormatInt(row.SoulsCount, 10),
			fromStr,
			toStr,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// Souls renders soul records for an admin download.
func Souls(souls []models.Soul) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"won_on", "name", "phone", "email", "residence", "notes", "evangelist_id"}); err != nil {
		return nil, err
	}
	for _, s := range souls {
		record := []string{
			s.WonOn.UTC().Format("2006-01-02"),
			csvSafe(s.Name),
			csvSafe(s.Phone),
			csvSafe(s.Email),
			csvSafe(s.Residence),
			csvSafe(s.Notes),
			strconv.FormatUint(uint64(s.EvangelistID), 10),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// Audit renders the approval trail. The action column reads APPROVED or
// UNAPPROVED rather than a bare boolean.
func Audit(logs []models.ApprovalLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"action_at", "evangelist", "action", "by_admin"}); err != nil {
		return nil, err
	}
	for _, entry := range logs {
		action := "UNAPPROVED"
		if entry.Approved {
			action = "APPROVED"
		}
		evangelist := entry.Evangelist.FullName
		if evangelist == "" {
			evangelist = strconv.FormatUint(uint64(entry.EvangelistID), 10)
		}
		actor := entry.Actor.FullName
		if actor == "" {
			actor = strconv.FormatUint(uint64(entry.ActionBy), 10)
		}
		record := []string{
			entry.ActionAt.UTC().Format(time.RFC3339),
			csvSafe(evangelist),
			action,
			csvSafe(actor),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
