package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"refmart/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Geo tier keys of the policy document. Order is the distribution order.
const (
	GeoSubFranchise        = "sub_franchise"
	GeoPincodeAgent        = "pincode_agent"
	GeoPincodeCoordinator  = "pincode_coordinator"
	GeoDistrictAgent       = "district_agent"
	GeoDistrictCoordinator = "district_coordinator"
	GeoStateAgent          = "state_agent"
	GeoStateCoordinator    = "state_coordinator"
)

// Canonical level depths per schedule.
const (
	SponsorLevels   = 5
	FivePoolLevels  = 6
	ThreePoolLevels = 15
)

// Schedule pays a fixed amount per 1-indexed level. When no fixed array is
// configured, Percent of the trigger's base amount applies to every level
// instead. One of the two must be present.
type Schedule struct {
	Fixed   []decimal.Decimal `json:"fixed,omitempty"`
	Percent *decimal.Decimal  `json:"percent,omitempty"`
	levels  int
}

// Levels is how deep the schedule can pay.
func (s Schedule) Levels() int {
	if len(s.Fixed) > 0 {
		return len(s.Fixed)
	}
	return s.levels
}

// AmountAt returns the amount for the given 1-indexed level, zero when the
// level is out of range.
func (s Schedule) AmountAt(level int, base decimal.Decimal) decimal.Decimal {
	if level < 1 || level > s.Levels() {
		return decimal.Zero
	}
	if len(s.Fixed) > 0 {
		return s.Fixed[level-1]
	}
	return base.Mul(*s.Percent).Div(decimal.NewFromInt(100)).Round(2)
}

type productDoc struct {
	Direct *struct {
		Sponsor *decimal.Decimal `json:"sponsor"`
		Self    *decimal.Decimal `json:"self"`
	} `json:"direct"`
	Matrix *struct {
		Enable3 *bool `json:"enable3"`
		Enable5 *bool `json:"enable5"`
	} `json:"matrix"`
	Coupons *struct {
		ActivationCount *int `json:"activation_count"`
	} `json:"coupons"`
	Rewards *struct {
		PointsAmount *decimal.Decimal `json:"points_amount"`
	} `json:"rewards"`
	BaseAmount *decimal.Decimal `json:"base_amount"`
}

type document struct {
	WithholdingPercent *decimal.Decimal `json:"withholding_percent"`
	Products           struct {
		Prime150            *productDoc `json:"prime_150"`
		Prime750            *productDoc `json:"prime_750"`
		MonthlyFirstBox     *productDoc `json:"monthly_first_box"`
		MonthlyRecurringBox *productDoc `json:"monthly_recurring_box"`
	} `json:"products"`
	Levels struct {
		Sponsor        *Schedule `json:"sponsor"`
		MatrixFive     *Schedule `json:"matrix_five"`
		MatrixThree150 *Schedule `json:"matrix_three_150"`
		MatrixThree50  *Schedule `json:"matrix_three_50"`
	} `json:"levels"`
	Geo map[string]decimal.Decimal `json:"geo"`
}

// Product is the fully-resolved payout configuration for one product tier.
type Product struct {
	SponsorAmount   decimal.Decimal
	SelfAmount      decimal.Decimal
	Enable3         bool
	Enable5         bool
	ActivationCount int
	PointsAmount    decimal.Decimal
	BaseAmount      decimal.Decimal
}

// Policy is one validated snapshot of the commission configuration. Loaded
// once per trigger and passed down the call chain; never read ambiently
// mid-distribution.
type Policy struct {
	doc  document
	hash string
}

func (p *Policy) Prime150() Product            { return resolve(p.doc.Products.Prime150) }
func (p *Policy) Prime750() Product            { return resolve(p.doc.Products.Prime750) }
func (p *Policy) MonthlyFirstBox() Product     { return resolve(p.doc.Products.MonthlyFirstBox) }
func (p *Policy) MonthlyRecurringBox() Product { return resolve(p.doc.Products.MonthlyRecurringBox) }

func (p *Policy) SponsorSchedule() Schedule { return *p.doc.Levels.Sponsor }

func (p *Policy) MatrixSchedule(pool models.PoolType) (Schedule, error) {
	switch pool {
	case models.PoolFive:
		return *p.doc.Levels.MatrixFive, nil
	case models.PoolThree150:
		return *p.doc.Levels.MatrixThree150, nil
	case models.PoolThree50:
		return *p.doc.Levels.MatrixThree50, nil
	}
	return Schedule{}, invalid("levels", fmt.Sprintf("unknown pool type %q", pool))
}

// GeoAmount returns the configured fixed amount for a geo tier. Unconfigured
// tiers report ok=false and are silently skipped by the distributor.
func (p *Policy) GeoAmount(tier string) (decimal.Decimal, bool) {
	amt, ok := p.doc.Geo[tier]
	return amt, ok
}

func (p *Policy) WithholdingPercent() decimal.Decimal {
	return *p.doc.WithholdingPercent
}

// Hash is a stable digest of the normalized document, for audit trails and
// change detection.
func (p *Policy) Hash() string { return p.hash }

func resolve(d *productDoc) Product {
	return Product{
		SponsorAmount:   *d.Direct.Sponsor,
		SelfAmount:      *d.Direct.Self,
		Enable3:         *d.Matrix.Enable3,
		Enable5:         *d.Matrix.Enable5,
		ActivationCount: *d.Coupons.ActivationCount,
		PointsAmount:    *d.Rewards.PointsAmount,
		BaseAmount:      *d.BaseAmount,
	}
}

// Parse unmarshals and strictly validates a raw policy document.
func Parse(raw []byte) (*Policy, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, invalid("doc", "not valid JSON: "+err.Error())
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}
	h, err := canonicalHash(raw)
	if err != nil {
		return nil, err
	}
	return &Policy{doc: doc, hash: h}, nil
}

// Load fetches the single active policy row and parses it. Every trigger
// calls this at the start of its transaction.
func Load(db *gorm.DB) (*Policy, error) {
	var row models.CommissionPolicy
	err := db.Where("active = ?", true).Order("version DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, missing("policy")
	}
	if err != nil {
		return nil, err
	}
	return Parse(row.Doc)
}

// Install validates a document and makes it the active policy, superseding
// the previous version. Used by the admin subsystem and by tests.
func Install(db *gorm.DB, raw []byte) (*models.CommissionPolicy, error) {
	if _, err := Parse(raw); err != nil {
		return nil, err
	}
	var version int64
	if err := db.Model(&models.CommissionPolicy{}).Count(&version).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CommissionPolicy{}).
		Where("active = ?", true).Update("active", false).Error; err != nil {
		return nil, err
	}
	row := models.CommissionPolicy{
		Version: int(version) + 1,
		Active:  true,
		Doc:     datatypes.JSON(raw),
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func validate(doc *document) error {
	if doc.WithholdingPercent == nil {
		return missing("withholding_percent")
	}
	if doc.WithholdingPercent.IsNegative() || doc.WithholdingPercent.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("withholding_percent", "must be between 0 and 100")
	}

	products := []struct {
		path string
		doc  *productDoc
	}{
		{"products.prime_150", doc.Products.Prime150},
		{"products.prime_750", doc.Products.Prime750},
		{"products.monthly_first_box", doc.Products.MonthlyFirstBox},
		{"products.monthly_recurring_box", doc.Products.MonthlyRecurringBox},
	}
	for _, p := range products {
		if err := validateProduct(p.path, p.doc); err != nil {
			return err
		}
	}

	schedules := []struct {
		path   string
		sched  *Schedule
		levels int
	}{
		{"levels.sponsor", doc.Levels.Sponsor, SponsorLevels},
		{"levels.matrix_five", doc.Levels.MatrixFive, FivePoolLevels},
		{"levels.matrix_three_150", doc.Levels.MatrixThree150, ThreePoolLevels},
		{"levels.matrix_three_50", doc.Levels.MatrixThree50, ThreePoolLevels},
	}
	for _, s := range schedules {
		if err := validateSchedule(s.path, s.sched, s.levels); err != nil {
			return err
		}
	}

	for tier, amt := range doc.Geo {
		switch tier {
		case GeoSubFranchise, GeoPincodeAgent, GeoPincodeCoordinator,
			GeoDistrictAgent, GeoDistrictCoordinator, GeoStateAgent, GeoStateCoordinator:
		default:
			return invalid("geo."+tier, "unknown geo tier")
		}
		if amt.IsNegative() {
			return invalid("geo."+tier, "must not be negative")
		}
	}
	return nil
}

func validateProduct(path string, d *productDoc) error {
	if d == nil {
		return missing(path)
	}
	if d.Direct == nil {
		return missing(path + ".direct")
	}
	if d.Direct.Sponsor == nil {
		return missing(path + ".direct.sponsor")
	}
	if d.Direct.Self == nil {
		return missing(path + ".direct.self")
	}
	if d.Matrix == nil {
		return missing(path + ".matrix")
	}
	if d.Matrix.Enable3 == nil {
		return missing(path + ".matrix.enable3")
	}
	if d.Matrix.Enable5 == nil {
		return missing(path + ".matrix.enable5")
	}
	if d.Coupons == nil || d.Coupons.ActivationCount == nil {
		return missing(path + ".coupons.activation_count")
	}
	if d.Rewards == nil || d.Rewards.PointsAmount == nil {
		return missing(path + ".rewards.points_amount")
	}
	if d.BaseAmount == nil {
		return missing(path + ".base_amount")
	}
	return nil
}

func validateSchedule(path string, s *Schedule, levels int) error {
	if s == nil {
		return missing(path)
	}
	if len(s.Fixed) == 0 && s.Percent == nil {
		return invalid(path, "needs either a fixed array or a percent")
	}
	if len(s.Fixed) > 0 && len(s.Fixed) != levels {
		return invalid(path, fmt.Sprintf("fixed array must have %d entries, got %d", levels, len(s.Fixed)))
	}
	if s.Percent != nil && s.Percent.IsNegative() {
		return invalid(path+".percent", "must not be negative")
	}
	s.levels = levels
	return nil
}

// canonicalHash digests the document after a decode/encode round trip, so
// key order and whitespace never change the hash.
func canonicalHash(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	normalized, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}
