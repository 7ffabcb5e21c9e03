package entity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
)

var postcodePattern = regexp.MustCompile(`(?i)[A-Z]{1,2}\d{1,2}\s?\d[A-Z]{2}`)

// Match reasons recorded on candidates.
const (
	ReasonPostcode    = "Postcode match in address"
	ReasonContext     = "Currently selected entity"
	ReasonDefault     = "Default entity"
	ReasonOnlyEntity  = "Only entity registered"
	minNameTokenRunes = 3
)

// Scorer computes weighted confidence between document signals and entities.
// It holds no per-call state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weight table.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns one candidate per entity, in entity order. A lone entity scores
// 1.0 without consulting the signals.
func (s *Scorer) Score(signals model.DocumentSignals, entities []model.Entity, contextEntityID string) []model.EntityMatchCandidate {
	switch len(entities) {
	case 0:
		return []model.EntityMatchCandidate{}
	case 1:
		return []model.EntityMatchCandidate{{
			EntityID:     entities[0].ID,
			EntityName:   entities[0].Name,
			EntityType:   entities[0].Type,
			Confidence:   1.0,
			MatchReasons: []string{ReasonOnlyEntity},
		}}
	}

	candidates := make([]model.EntityMatchCandidate, 0, len(entities))
	for _, e := range entities {
		candidates = append(candidates, s.scoreEntity(signals, e, contextEntityID))
	}
	return candidates
}

// scoring accumulates one entity's score.
type scoring struct {
	reasons       []string
	score         float64
	nameMatched   bool
	numberMatched bool
}

func (sc *scoring) add(weight float64, reason string) {
	sc.score += weight
	sc.reasons = append(sc.reasons, reason)
}

func (s *Scorer) scoreEntity(signals model.DocumentSignals, e model.Entity, contextEntityID string) model.EntityMatchCandidate {
	w := s.weights
	sc := &scoring{reasons: []string{}}

	if signals.CompanyNumber != "" && e.CompanyNumber != "" {
		entityNumber := cleanCompanyNumber(e.CompanyNumber)
		if cleanCompanyNumber(signals.CompanyNumber) == entityNumber {
			sc.add(w.CompanyNumber, fmt.Sprintf("Company number match: %s", entityNumber))
			sc.numberMatched = true
		}
	}

	if signals.VATNumber != "" && e.VATNumber != "" {
		entityVAT := cleanVATNumber(e.VATNumber)
		if cleanVATNumber(signals.VATNumber) == entityVAT {
			sc.add(w.VATNumber, fmt.Sprintf("VAT number match: %s", entityVAT))
		}
	}

	s.scoreReferences(sc, signals.ReferenceNumbers, e)
	s.scoreName(sc, signals.SenderName, e)

	if signals.Address != "" && sharesPostcode(signals.Address, e.Addresses()) {
		sc.add(w.Postcode, ReasonPostcode)
	}

	if signals.RawText != "" {
		s.scoreRawText(sc, signals.RawText, e)
	}

	if contextEntityID != "" && e.ID == contextEntityID {
		sc.add(w.Context, ReasonContext)
	}

	if e.IsDefault && len(sc.reasons) == 0 {
		sc.add(w.Default, ReasonDefault)
	}

	return model.EntityMatchCandidate{
		EntityID:     e.ID,
		EntityName:   e.Name,
		EntityType:   e.Type,
		Confidence:   clamp(sc.score),
		MatchReasons: sc.reasons,
	}
}

func (s *Scorer) scoreReferences(sc *scoring, refs []string, e model.Entity) {
	if len(refs) == 0 {
		return
	}
	own := make(map[string]struct{}, 3)
	for _, r := range e.References() {
		own[cleanCompanyNumber(r)] = struct{}{}
	}
	for _, ref := range refs {
		clean := cleanCompanyNumber(ref)
		if _, ok := own[clean]; ok && clean != "" {
			sc.add(s.weights.Reference, fmt.Sprintf("Reference number match: %s", clean))
			return
		}
	}
}

// scoreName tries each entity name in turn; the first name that matches in
// any way ends the scan.
func (s *Scorer) scoreName(sc *scoring, sender string, e model.Entity) {
	sender = normalize.Fold(strings.TrimSpace(sender))
	if sender == "" {
		return
	}

	for _, name := range e.Names() {
		name = normalize.Fold(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if sender == name {
			sc.add(s.weights.ExactName, fmt.Sprintf("Exact name match: %q", name))
			sc.nameMatched = true
			return
		}
		if strings.Contains(sender, name) || strings.Contains(name, sender) {
			sc.add(s.weights.NameContained, fmt.Sprintf("Name contained: %q", name))
			sc.nameMatched = true
			return
		}
		if overlap := tokenOverlap(sender, name); overlap >= s.weights.MinNameOverlap {
			sc.add(s.weights.NameOverlap*overlap, fmt.Sprintf("Name word overlap (%.0f%%): %q", overlap*100, name))
			sc.nameMatched = true
			return
		}
	}
}

func (s *Scorer) scoreRawText(sc *scoring, rawText string, e model.Entity) {
	text := normalize.Fold(rawText)

	if !sc.nameMatched {
		for _, name := range e.Names() {
			name = normalize.Fold(strings.TrimSpace(name))
			if name != "" && strings.Contains(text, name) {
				sc.add(s.weights.TextName, fmt.Sprintf("Entity name found in document text: %q", name))
				sc.nameMatched = true
				break
			}
		}
	}

	if e.CompanyNumber != "" && !sc.numberMatched {
		number := stripSpace(e.CompanyNumber)
		if number != "" && strings.Contains(text, normalize.Fold(number)) {
			sc.add(s.weights.TextCompanyNumber, fmt.Sprintf("Company number found in text: %s", number))
			sc.numberMatched = true
		}
	}
}

// tokenOverlap is shared tokens over the larger token count. Tokens shorter
// than three runes are ignored.
func tokenOverlap(a, b string) float64 {
	aTokens := nameTokens(a)
	bTokens := nameTokens(b)

	bSet := make(map[string]struct{}, len(bTokens))
	for _, t := range bTokens {
		bSet[t] = struct{}{}
	}

	shared := 0
	for _, t := range aTokens {
		if _, ok := bSet[t]; ok {
			shared++
		}
	}

	denominator := max(len(aTokens), len(bTokens), 1)
	return float64(shared) / float64(denominator)
}

func nameTokens(s string) []string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minNameTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func sharesPostcode(address string, entityAddresses []string) bool {
	signal := postcodes(address)
	if len(signal) == 0 {
		return false
	}
	for _, addr := range entityAddresses {
		for _, pc := range postcodePattern.FindAllString(addr, -1) {
			if _, ok := signal[strings.ToUpper(stripSpace(pc))]; ok {
				return true
			}
		}
	}
	return false
}

func postcodes(s string) map[string]struct{} {
	found := postcodePattern.FindAllString(s, -1)
	set := make(map[string]struct{}, len(found))
	for _, pc := range found {
		set[strings.ToUpper(stripSpace(pc))] = struct{}{}
	}
	return set
}

func cleanCompanyNumber(s string) string {
	return strings.ToUpper(stripSpace(s))
}

func cleanVATNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return -1
	}, s)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
