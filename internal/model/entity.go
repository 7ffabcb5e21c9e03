package model

import "time"

// EntityType describes the legal form of a registered entity.
type EntityType string

// Entity type constants.
const (
	EntityIndividual  EntityType = "individual"
	EntitySoleTrader  EntityType = "sole_trader"
	EntityLimited     EntityType = "limited_company"
	EntityPartnership EntityType = "partnership"
)

// Entity is a business or individual whose records the user manages.
type Entity struct {
	CreatedAt         time.Time  `json:"created_at"`
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Name              string     `json:"name"`
	TradingName       string     `json:"trading_name,omitempty"`
	Type              EntityType `json:"type"`
	CompanyNumber     string     `json:"company_number,omitempty"`
	VATNumber         string     `json:"vat_number,omitempty"`
	UTR               string     `json:"utr,omitempty"`
	PAYEReference     string     `json:"paye_reference,omitempty"`
	NINumber          string     `json:"ni_number,omitempty"`
	RegisteredAddress string     `json:"registered_address,omitempty"`
	TradingAddress    string     `json:"trading_address,omitempty"`
	IsDefault         bool       `json:"is_default"`
}

// Names returns the entity's legal and trading names, skipping empty ones.
func (e Entity) Names() []string {
	names := make([]string, 0, 2)
	if e.Name != "" {
		names = append(names, e.Name)
	}
	if e.TradingName != "" {
		names = append(names, e.TradingName)
	}
	return names
}

// References returns the entity's tax reference numbers, skipping empty ones.
func (e Entity) References() []string {
	refs := make([]string, 0, 3)
	for _, r := range []string{e.UTR, e.PAYEReference, e.NINumber} {
		if r != "" {
			refs = append(refs, r)
		}
	}
	return refs
}

// Addresses returns the entity's known addresses.
func (e Entity) Addresses() []string {
	addrs := make([]string, 0, 2)
	for _, a := range []string{e.RegisteredAddress, e.TradingAddress} {
		if a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// DocumentSignals is normalized evidence extracted from a document.
// Empty strings mean the signal was absent.
type DocumentSignals struct {
	SenderName       string   `json:"sender_name,omitempty"`
	CompanyNumber    string   `json:"company_number,omitempty"`
	VATNumber        string   `json:"vat_number,omitempty"`
	Address          string   `json:"address,omitempty"`
	RawText          string   `json:"raw_text,omitempty"`
	ReferenceNumbers []string `json:"reference_numbers,omitempty"`
}

// EntityMatchCandidate is one entity's score against a signal set.
type EntityMatchCandidate struct {
	EntityID     string     `json:"entity_id"`
	EntityName   string     `json:"entity_name"`
	EntityType   EntityType `json:"entity_type"`
	MatchReasons []string   `json:"match_reasons"`
	Confidence   float64    `json:"confidence"`
}

// EntityMatchResult is the aggregate entity resolution decision.
type EntityMatchResult struct {
	BestMatch            *EntityMatchCandidate  `json:"best_match"`
	ContextEntityID      string                 `json:"context_entity_id,omitempty"`
	Candidates           []EntityMatchCandidate `json:"candidates"`
	AutoAssign           bool                   `json:"auto_assign"`
	NeedsConfirmation    bool                   `json:"needs_confirmation"`
	NeedsManualSelection bool                   `json:"needs_manual_selection"`
	Mismatch             bool                   `json:"mismatch"`
}
