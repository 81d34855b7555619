package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

const fieldPrompt = `You are a data extraction assistant for identity documents. Extract the
following fields from the raw OCR text of an identity document and return
them as a JSON object.

Rules:
1. The required keys are: "name", "document_number", "date_of_birth",
   "issue_date", "address", "nationality".
2. If a field cannot be found in the text, its value must be null.
3. Dates should be formatted as YYYY-MM-DD when the format is unambiguous;
   otherwise keep the document's own spelling.
4. Your entire response must be ONLY the JSON object.

Raw OCR text:
"""
%s
"""`

func (c *Client) ExtractFields(ctx context.Context, text string) (domain.DocumentFields, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(fieldPrompt, text))
	if err != nil {
		return domain.DocumentFields{}, err
	}
	return decodeFields(raw)
}

// decodeFields tolerates nulls and non-string values by decoding into a
// generic map first.
func decodeFields(raw string) (domain.DocumentFields, error) {
	raw = stripCodeFences(raw)
	if candidate, ok := extractFirstJSON(raw); ok {
		raw = candidate
	}

	var tmp map[string]any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return domain.DocumentFields{}, fmt.Errorf("parse gemini fields: %w", err)
	}

	get := func(key string) string {
		v, ok := tmp[key]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		b, _ := json.Marshal(v)
		return strings.TrimSpace(string(b))
	}

	return domain.DocumentFields{
		Name:           get("name"),
		DocumentNumber: get("document_number"),
		DateOfBirth:    get("date_of_birth"),
		IssueDate:      get("issue_date"),
		Address:        get("address"),
		Nationality:    get("nationality"),
	}, nil
}
