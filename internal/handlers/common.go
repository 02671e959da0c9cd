package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/fitline/api/internal/domain"
)

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = 16 * 1024
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimeParam(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func dateRangeFromQuery(fromRaw, toRaw string) (domain.RangeQuery[time.Time], error) {
	var out domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(fromRaw); raw != "" {
		from, err := parseTimeParam(raw)
		if err != nil {
			return out, errors.New("from must be RFC 3339")
		}
		out.From = &from
	}
	if raw := strings.TrimSpace(toRaw); raw != "" {
		to, err := parseTimeParam(raw)
		if err != nil {
			return out, errors.New("to must be RFC 3339")
		}
		out.To = &to
	}
	return out, nil
}

func paginationFromQuery(sizeRaw, tokenRaw string) domain.Pagination {
	page := domain.Pagination{PageToken: strings.TrimSpace(tokenRaw)}
	if raw := strings.TrimSpace(sizeRaw); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			page.PageSize = size
		}
	}
	return page
}

// parseFilterValues flattens repeated and comma-separated query values.
func parseFilterValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
