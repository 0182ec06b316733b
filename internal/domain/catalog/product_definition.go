package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType represents the kind of deposit product a definition describes
type ProductType string

const (
	ProductTypeSavings   ProductType = "SAVINGS"
	ProductTypeFixed     ProductType = "FIXED"
	ProductTypeRecurring ProductType = "RECURRING"
)

// IsValid checks if the product type is a valid ProductType
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeSavings, ProductTypeFixed, ProductTypeRecurring:
		return true
	}
	return false
}

// String returns the string representation of ProductType
func (t ProductType) String() string {
	return string(t)
}

// TimeUnit represents the unit a term period is expressed in
type TimeUnit string

const (
	TimeUnitDays   TimeUnit = "DAYS"
	TimeUnitWeeks  TimeUnit = "WEEKS"
	TimeUnitMonths TimeUnit = "MONTHS"
	TimeUnitYears  TimeUnit = "YEARS"
)

// IsValid checks if the time unit is a valid TimeUnit
func (u TimeUnit) IsValid() bool {
	switch u {
	case TimeUnitDays, TimeUnitWeeks, TimeUnitMonths, TimeUnitYears:
		return true
	}
	return false
}

// ApproximateDays returns the calendar-day length of one unit, used for
// interest proration across units
func (u TimeUnit) ApproximateDays() int {
	switch u {
	case TimeUnitDays:
		return 1
	case TimeUnitWeeks:
		return 7
	case TimeUnitMonths:
		return 30
	case TimeUnitYears:
		return 365
	}
	return 0
}

// ParseTimeUnit validates a transport-level string into a TimeUnit
func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(s)
	if !u.IsValid() {
		return "", shared.NewValidationError(fmt.Sprintf("Unknown time unit %q", s))
	}
	return u, nil
}

// InterestPayable represents when accrued interest is paid out
type InterestPayable string

const (
	InterestPayableMaturity  InterestPayable = "MATURITY"
	InterestPayableAnnually  InterestPayable = "ANNUALLY"
	InterestPayableQuarterly InterestPayable = "QUARTERLY"
	InterestPayableMonthly   InterestPayable = "MONTHLY"
)

// IsValid checks if the value is a valid InterestPayable
func (p InterestPayable) IsValid() bool {
	switch p {
	case InterestPayableMaturity, InterestPayableAnnually, InterestPayableQuarterly, InterestPayableMonthly:
		return true
	}
	return false
}

// ParseInterestPayable validates a transport-level string into an InterestPayable
func ParseInterestPayable(s string) (InterestPayable, error) {
	p := InterestPayable(s)
	if !p.IsValid() {
		return "", shared.NewValidationError(fmt.Sprintf("Unknown interest payable timing %q", s))
	}
	return p, nil
}

// Term describes the duration and interest timing of a deposit product
type Term struct {
	Period          int             `json:"period"`
	Unit            TimeUnit        `json:"unit"`
	InterestPayable InterestPayable `json:"interest_payable"`
}

// Validate checks the term for structural validity
func (t Term) Validate() error {
	if t.Period <= 0 {
		return shared.NewValidationError("Term period must be positive")
	}
	if !t.Unit.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown time unit %q", t.Unit))
	}
	if !t.InterestPayable.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown interest payable timing %q", t.InterestPayable))
	}
	return nil
}

// Equals reports whether two terms are identical
func (t Term) Equals(other Term) bool {
	return t.Period == other.Period && t.Unit == other.Unit && t.InterestPayable == other.InterestPayable
}

// Value implements driver.Valuer for JSONB storage
func (t Term) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB storage
func (t *Term) Scan(value interface{}) error {
	return scanJSON(value, t)
}

// ChargeMethod distinguishes proportional from fixed charges
type ChargeMethod string

const (
	ChargeMethodProportional ChargeMethod = "PROPORTIONAL"
	ChargeMethodFixed        ChargeMethod = "FIXED"
)

// IsValid checks if the charge method is valid
func (m ChargeMethod) IsValid() bool {
	return m == ChargeMethodProportional || m == ChargeMethodFixed
}

// Charge is a fee attached to an action. Proportional charges apply as a
// percentage of the transaction amount; fixed charges apply as an absolute
// value, independent of direction.
type Charge struct {
	Identifier       string          `json:"identifier"`
	Name             string          `json:"name"`
	ActionIdentifier string          `json:"action_identifier"`
	Method           ChargeMethod    `json:"method"`
	Amount           decimal.Decimal `json:"amount"`
}

// Validate checks the charge for structural validity
func (c Charge) Validate() error {
	if c.Identifier == "" {
		return shared.NewValidationError("Charge identifier cannot be empty")
	}
	if c.ActionIdentifier == "" {
		return shared.NewValidationError("Charge must reference an action")
	}
	if !c.Method.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown charge method %q", c.Method))
	}
	if c.Amount.IsNegative() {
		return shared.NewValidationError("Charge amount cannot be negative")
	}
	return nil
}

// Fee computes the charge for a transaction amount. The result is never
// negative regardless of transaction direction.
func (c Charge) Fee(transactionAmount decimal.Decimal) decimal.Decimal {
	if c.Method == ChargeMethodProportional {
		hundred := decimal.NewFromInt(100)
		return transactionAmount.Abs().Mul(c.Amount).Div(hundred)
	}
	return c.Amount.Abs()
}

// Charges is a slice of Charge stored as JSONB
type Charges []Charge

// Value implements driver.Valuer for JSONB storage
func (c Charges) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage
func (c *Charges) Scan(value interface{}) error {
	return scanJSONSlice(value, c)
}

// Action is a named operation permitted against instances of a definition
type Action struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"name"`
	TransactionType string `json:"transaction_type"`
}

// Validate checks the action for structural validity
func (a Action) Validate() error {
	if a.Identifier == "" {
		return shared.NewValidationError("Action identifier cannot be empty")
	}
	if a.TransactionType == "" {
		return shared.NewValidationError("Action transaction type cannot be empty")
	}
	return nil
}

// Actions is a slice of Action stored as JSONB
type Actions []Action

// Value implements driver.Valuer for JSONB storage
func (a Actions) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage
func (a *Actions) Scan(value interface{}) error {
	return scanJSONSlice(value, a)
}

// DefinitionState is the activation state of a definition, used in
// state-transition error messages
type DefinitionState string

const (
	DefinitionStateActive   DefinitionState = "ACTIVE"
	DefinitionStateInactive DefinitionState = "INACTIVE"
)

// ProductDefinition is the aggregate root for a deposit product template:
// interest rules, term, charges and the actions legal against its instances.
type ProductDefinition struct {
	shared.TenantAggregateRoot
	Identifier     string               `json:"identifier"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Type           ProductType          `json:"type"`
	Currency       valueobject.Currency `json:"currency"`
	MinimumBalance decimal.Decimal      `json:"minimum_balance"`
	InterestRate   decimal.Decimal      `json:"interest_rate"`
	Term           Term                 `json:"term"`
	Charges        Charges              `json:"charges"`
	Actions        Actions              `json:"actions"`
	Flexible       bool                 `json:"flexible"`
	Active         bool                 `json:"active"`
}

// NewProductDefinition creates a new, inactive product definition
func NewProductDefinition(
	tenantID uuid.UUID,
	identifier string,
	name string,
	productType ProductType,
	currency valueobject.Currency,
	minimumBalance decimal.Decimal,
	interestRate decimal.Decimal,
	term Term,
) (*ProductDefinition, error) {
	if identifier == "" {
		return nil, shared.NewValidationError("Definition identifier cannot be empty")
	}
	if len(identifier) > 32 {
		return nil, shared.NewValidationError("Definition identifier cannot exceed 32 characters")
	}
	if name == "" {
		return nil, shared.NewValidationError("Definition name cannot be empty")
	}
	if !productType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown product type %q", productType))
	}
	if !currency.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown currency %q", currency))
	}
	if minimumBalance.IsNegative() {
		return nil, shared.NewValidationError("Minimum balance cannot be negative")
	}
	if interestRate.IsNegative() {
		return nil, shared.NewValidationError("Interest rate cannot be negative")
	}
	if err := term.Validate(); err != nil {
		return nil, err
	}

	pd := &ProductDefinition{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Identifier:          identifier,
		Name:                name,
		Type:                productType,
		Currency:            currency,
		MinimumBalance:      minimumBalance,
		InterestRate:        interestRate,
		Term:                term,
		Charges:             Charges{},
		Actions:             Actions{},
		Active:              false,
	}

	pd.AddDomainEvent(NewProductDefinitionPostedEvent(pd))

	return pd, nil
}

// State returns the activation state of the definition
func (pd *ProductDefinition) State() DefinitionState {
	if pd.Active {
		return DefinitionStateActive
	}
	return DefinitionStateInactive
}

// SetCharges replaces the ordered charge list after validating each entry
func (pd *ProductDefinition) SetCharges(charges Charges) error {
	for _, c := range charges {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	pd.Charges = charges
	pd.Touch()
	return nil
}

// SetActions replaces the ordered action list after validating each entry
func (pd *ProductDefinition) SetActions(actions Actions) error {
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	pd.Actions = actions
	pd.Touch()
	return nil
}

// ActionByIdentifier looks up a permitted action
func (pd *ProductDefinition) ActionByIdentifier(identifier string) (Action, bool) {
	for _, a := range pd.Actions {
		if a.Identifier == identifier {
			return a, true
		}
	}
	return Action{}, false
}

// ChargesForAction returns the charges attached to an action, in declaration order
func (pd *ProductDefinition) ChargesForAction(actionIdentifier string) []Charge {
	var result []Charge
	for _, c := range pd.Charges {
		if c.ActionIdentifier == actionIdentifier {
			result = append(result, c)
		}
	}
	return result
}

// TotalFee computes the combined fee of all charges of an action for the
// given transaction amount
func (pd *ProductDefinition) TotalFee(actionIdentifier string, transactionAmount decimal.Decimal) decimal.Decimal {
	fee := decimal.Zero
	for _, c := range pd.ChargesForAction(actionIdentifier) {
		fee = fee.Add(c.Fee(transactionAmount))
	}
	return fee
}

// Activate transitions the definition INACTIVE -> ACTIVE and appends an
// audit command record. Activating an already-active definition fails with
// an invalid-state-transition error and mutates nothing.
func (pd *ProductDefinition) Activate(comment string) (*DefinitionCommand, error) {
	if pd.Active {
		return nil, shared.NewInvalidStateTransitionError(string(DefinitionCommandActivate), string(pd.State()))
	}
	pd.Active = true
	pd.Touch()
	pd.IncrementVersion()

	cmd := NewDefinitionCommand(pd.TenantID, pd.ID, DefinitionCommandActivate, comment)
	pd.AddDomainEvent(NewProductDefinitionActivatedEvent(pd, comment))
	return cmd, nil
}

// Deactivate transitions the definition ACTIVE -> INACTIVE and appends an
// audit command record
func (pd *ProductDefinition) Deactivate(comment string) (*DefinitionCommand, error) {
	if !pd.Active {
		return nil, shared.NewInvalidStateTransitionError(string(DefinitionCommandDeactivate), string(pd.State()))
	}
	pd.Active = false
	pd.Touch()
	pd.IncrementVersion()

	cmd := NewDefinitionCommand(pd.TenantID, pd.ID, DefinitionCommandDeactivate, comment)
	pd.AddDomainEvent(NewProductDefinitionDeactivatedEvent(pd, comment))
	return cmd, nil
}

// UpdateDetails applies an update to the mutable fields of the definition.
// The product type is immutable; currency and term become immutable once any
// instance exists, which the caller signals via hasInstances.
func (pd *ProductDefinition) UpdateDetails(
	name string,
	description string,
	productType ProductType,
	currency valueobject.Currency,
	minimumBalance decimal.Decimal,
	interestRate decimal.Decimal,
	term Term,
	flexible bool,
	hasInstances bool,
) error {
	if productType != pd.Type {
		return shared.NewValidationError("Product type cannot be changed")
	}
	if !currency.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown currency %q", currency))
	}
	if err := term.Validate(); err != nil {
		return err
	}
	if hasInstances {
		if currency != pd.Currency {
			return shared.NewValidationError("Currency cannot be changed while instances exist")
		}
		if !term.Equals(pd.Term) {
			return shared.NewValidationError("Term cannot be changed while instances exist")
		}
	}
	if name == "" {
		return shared.NewValidationError("Definition name cannot be empty")
	}
	if minimumBalance.IsNegative() {
		return shared.NewValidationError("Minimum balance cannot be negative")
	}
	if interestRate.IsNegative() {
		return shared.NewValidationError("Interest rate cannot be negative")
	}

	pd.Name = name
	pd.Description = description
	pd.Currency = currency
	pd.MinimumBalance = minimumBalance
	pd.InterestRate = interestRate
	pd.Term = term
	pd.Flexible = flexible
	pd.Touch()
	pd.IncrementVersion()

	pd.AddDomainEvent(NewProductDefinitionUpdatedEvent(pd))
	return nil
}

// HasInterestPayableTerm reports whether instances of this definition accrue
// interest on a schedule
func (pd *ProductDefinition) HasInterestPayableTerm() bool {
	return pd.InterestRate.IsPositive() && pd.Term.InterestPayable.IsValid()
}

// scanJSON unmarshals a JSONB column into target
func scanJSON(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSON column: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, target)
}

// scanJSONSlice unmarshals a JSONB array column, treating NULL/empty as empty slice
func scanJSONSlice(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSON column: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, target)
}
