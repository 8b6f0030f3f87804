package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/entitle/internal/catalog/domain"
	featuredomain "github.com/smallbiznis/entitle/internal/feature/domain"
	"gorm.io/gorm"
)

type demoFeature struct {
	Code      string
	Name      string
	Category  string
	Kind      featuredomain.FeatureKind
	ResetType featuredomain.ResetType
}

type demoGrant struct {
	FeatureCode string
	LimitValue  *int64
}

type demoPackage struct {
	Code      string
	Name      string
	Stackable bool
	Grants    []demoGrant
}

var demoFeatures = []demoFeature{
	{Code: "social.accounts", Name: "Connected social accounts", Category: "social", Kind: featuredomain.FeatureKindLimited, ResetType: featuredomain.ResetTypeNone},
	{Code: "ai.credits", Name: "AI generation credits", Category: "ai", Kind: featuredomain.FeatureKindLimited, ResetType: featuredomain.ResetTypeMonthly},
	{Code: "api.requests", Name: "API requests", Category: "platform", Kind: featuredomain.FeatureKindLimited, ResetType: featuredomain.ResetTypeDaily},
	{Code: "sso", Name: "Single sign-on", Category: "platform", Kind: featuredomain.FeatureKindBoolean, ResetType: featuredomain.ResetTypeNone},
}

var demoPackages = []demoPackage{
	{
		Code: "starter", Name: "Starter",
		Grants: []demoGrant{
			{FeatureCode: "social.accounts", LimitValue: ptr(3)},
			{FeatureCode: "ai.credits", LimitValue: ptr(50)},
			{FeatureCode: "api.requests", LimitValue: ptr(1000)},
		},
	},
	{
		Code: "pro", Name: "Pro",
		Grants: []demoGrant{
			{FeatureCode: "social.accounts", LimitValue: ptr(10)},
			{FeatureCode: "ai.credits", LimitValue: ptr(500)},
			{FeatureCode: "api.requests", LimitValue: nil},
			{FeatureCode: "sso", LimitValue: nil},
		},
	},
	{
		Code: "accounts-pack", Name: "Extra accounts pack", Stackable: true,
		Grants: []demoGrant{
			{FeatureCode: "social.accounts", LimitValue: ptr(5)},
		},
	},
}

// EnsureDemoCatalog seeds a small feature and package catalog for local
// development. Every step is idempotent so repeated startups are safe.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		features := make(map[string]featuredomain.Feature, len(demoFeatures))
		for _, f := range demoFeatures {
			record, err := ensureFeatureTx(ctx, tx, node, f)
			if err != nil {
				return err
			}
			features[record.Code] = *record
		}

		for _, p := range demoPackages {
			pkg, err := ensurePackageTx(ctx, tx, node, p)
			if err != nil {
				return err
			}
			for _, g := range p.Grants {
				feature, ok := features[g.FeatureCode]
				if !ok {
					continue
				}
				if err := ensureGrantTx(ctx, tx, node, pkg.ID, feature.ID, g.LimitValue); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func ensureFeatureTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, f demoFeature) (*featuredomain.Feature, error) {
	var record featuredomain.Feature
	err := tx.WithContext(ctx).Where("code = ?", f.Code).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	record = featuredomain.Feature{
		ID:        node.Generate(),
		Code:      f.Code,
		Name:      f.Name,
		Category:  f.Category,
		Kind:      f.Kind,
		ResetType: f.ResetType,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ensurePackageTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, p demoPackage) (*catalogdomain.Package, error) {
	var record catalogdomain.Package
	err := tx.WithContext(ctx).Where("code = ?", p.Code).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	record = catalogdomain.Package{
		ID:        node.Generate(),
		Code:      p.Code,
		Name:      p.Name,
		Stackable: p.Stackable,
		Active:    true,
		Public:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func ensureGrantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, packageID, featureID snowflake.ID, limit *int64) error {
	var record catalogdomain.PackageFeature
	err := tx.WithContext(ctx).
		Where("package_id = ? AND feature_id = ?", packageID, featureID).
		First(&record).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	record = catalogdomain.PackageFeature{
		ID:         node.Generate(),
		PackageID:  packageID,
		FeatureID:  featureID,
		LimitValue: limit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&record).Error
}

func ptr(v int64) *int64 { return &v }
