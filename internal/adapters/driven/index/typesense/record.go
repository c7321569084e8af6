package typesense

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// reactionFields are the flattened reaction counters, in Reactions order.
var reactionFields = []string{
	"reactions_total",
	"reactions_up_vote",
	"reactions_down_vote",
	"reactions_laugh",
	"reactions_hooray",
	"reactions_confused",
	"reactions_heart",
}

// refFields is the projection FindStale reads back.
const refFields = "id,owner,repo,number,state,updated_at"

// Record flattens a document into the index representation. Null values
// are omitted so optional fields stay absent rather than zero.
func Record(doc domain.Document) map[string]any {
	rec := map[string]any{
		"id":                 doc.ID,
		"number":             doc.Number,
		"fetched_at":         doc.FetchedAt.Unix(),
		"owner":              doc.Owner,
		"repo":               doc.Repo,
		"repository":         doc.Repository(),
		"state":              string(doc.State),
		"title":              doc.Title,
		"body":               doc.Body,
		"author":             doc.Author,
		"author_association": doc.AuthorAssociation,
		"labels":             nonNil(doc.Labels),
		"is_pull_request":    doc.IsPullRequest,
		"is_transferred":     doc.IsTransferred,
		"html_url":           doc.HTMLURL,
	}

	if doc.Assignees != nil {
		rec["assignees"] = doc.Assignees
	}

	putFacets(rec, "created_at", doc.CreatedAt)
	putFacets(rec, "updated_at", doc.UpdatedAt)
	putFacets(rec, "closed_at", doc.ClosedAt)
	putFacets(rec, "transferred_at", doc.TransferredAt)

	if r := doc.Reactions; r != nil {
		counts := []int{r.Total, r.UpVote, r.DownVote, r.Laugh, r.Hooray, r.Confused, r.Heart}
		for i, name := range reactionFields {
			rec[name] = counts[i]
		}
	}

	if doc.MovedFrom != nil {
		rec["moved_from"] = *doc.MovedFrom
	}
	if doc.MovedTo != nil {
		rec["moved_to"] = *doc.MovedTo
	}
	if doc.TimeToFix != nil {
		rec["time_to_fix"] = doc.TimeToFix.Milliseconds()
	}

	return rec
}

// transferredPatch is the partial update applied by MarkTransferred.
func transferredPatch(id string) map[string]any {
	return map[string]any{
		"id":             id,
		"state":          string(domain.StateTransferred),
		"is_transferred": true,
	}
}

func putFacets(rec map[string]any, prefix string, f *domain.TimeFacets) {
	if f == nil {
		return
	}
	rec[prefix] = f.Instant.Unix()
	rec[prefix+"_weekday"] = f.Weekday
	rec[prefix+"_weekday_num"] = f.WeekdayNum
	rec[prefix+"_hour"] = f.Hour
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// parseRef reads a search hit projected to refFields.
func parseRef(hit map[string]any) (domain.DocumentRef, error) {
	ref := domain.DocumentRef{
		ID:    stringField(hit, "id"),
		Owner: stringField(hit, "owner"),
		Repo:  stringField(hit, "repo"),
		State: domain.State(stringField(hit, "state")),
	}
	if ref.ID == "" {
		return ref, fmt.Errorf("%w: hit without id", domain.ErrMalformedResponse)
	}

	number, err := intField(hit, "number")
	if err != nil {
		return ref, err
	}
	ref.Number = int(number)

	if _, ok := hit["updated_at"]; ok {
		updated, err := intField(hit, "updated_at")
		if err != nil {
			return ref, err
		}
		ref.UpdatedAt = unixUTC(updated)
	}
	return ref, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("%w: field %s has type %T", domain.ErrMalformedResponse, key, v)
	}
}
