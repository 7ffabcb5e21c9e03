package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Alias keys tried, in order, for each signal. The first non-empty value wins.
var (
	senderNameKeys    = []string{"senderName", "providerName", "companyName", "from", "issuer"}
	companyNumberKeys = []string{"companyNumber", "company_number", "companiesHouseNumber"}
	vatNumberKeys     = []string{"vatNumber", "vat_number", "vatRegistration"}
	addressKeys       = []string{"address", "senderAddress", "registeredAddress"}
	rawTextKeys       = []string{"summary", "rawText", "fullText"}

	// Every present reference key contributes, not just the first.
	referenceKeys = []string{"utr", "payeReference", "niNumber", "taxReference"}
)

// ExtractSignals maps an extracted-document dictionary onto DocumentSignals.
// Values are not validated; absent or empty fields leave the signal empty.
func ExtractSignals(fields map[string]any) model.DocumentSignals {
	signals := model.DocumentSignals{
		SenderName:    firstValue(fields, senderNameKeys),
		CompanyNumber: firstValue(fields, companyNumberKeys),
		VATNumber:     firstValue(fields, vatNumberKeys),
		Address:       firstValue(fields, addressKeys),
		RawText:       firstValue(fields, rawTextKeys),
	}

	for _, key := range referenceKeys {
		if v, ok := stringValue(fields[key]); ok {
			signals.ReferenceNumbers = append(signals.ReferenceNumbers, v)
		}
	}

	return signals
}

// ParseDocument decodes a JSON object of extracted fields and extracts signals from it.
func ParseDocument(data []byte) (model.DocumentSignals, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return model.DocumentSignals{}, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return ExtractSignals(fields), nil
}

func firstValue(fields map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := stringValue(fields[key]); ok {
			return v
		}
	}
	return ""
}

// stringValue accepts non-blank strings and scalar numbers; extractors
// sometimes emit company numbers as JSON numbers.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return "", false
		}
		return val, true
	case float64:
		if val == 0 {
			return "", false
		}
		return fmt.Sprintf("%.0f", val), val == float64(int64(val))
	case json.Number:
		return val.String(), true
	case int:
		return fmt.Sprint(val), val != 0
	case int64:
		return fmt.Sprint(val), val != 0
	default:
		return "", false
	}
}
