package main

import (
	"context"
	"log"
	"os"

	"digipay/internal/config"
	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/utils"

	"github.com/lib/pq"
)

var tiers = []models.CommissionTier{
	{Name: models.TierStandard, Rate: models.DefaultCommissionRates[models.TierStandard], Features: pq.StringArray{"payments", "settlements"}},
	{Name: models.TierPremium, Rate: models.DefaultCommissionRates[models.TierPremium], MinTransactionVolume: 5_000_000, Features: pq.StringArray{"payments", "settlements", "priority_support"}},
	{Name: models.TierEnterprise, Rate: models.DefaultCommissionRates[models.TierEnterprise], MinTransactionVolume: 50_000_000, Features: pq.StringArray{"payments", "settlements", "priority_support", "custom_rate"}},
}

func main() {
	config.LoadEnv()
	settings := config.Load()

	businessName := config.GetEnv("SEED_MERCHANT_NAME", "DigiPay Demo Shop")
	payoutNumber := os.Getenv("SEED_MERCHANT_PHONE")
	webhookURL := os.Getenv("SEED_WEBHOOK_URL")

	if payoutNumber == "" {
		log.Fatal("SEED_MERCHANT_PHONE must be set in environment")
	}

	if err := repositories.InitDB(settings); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer repositories.Close()

	if config.GetBoolEnv("SEED_RESET", false) {
		if err := repositories.ResetDatabase(); err != nil {
			log.Fatalf("❌ Failed to reset database: %v", err)
		}
		log.Println("✅ Database reset")
	}

	ctx := context.Background()
	db := repositories.DB

	tierRepo := repositories.NewCommissionTierRepository(db)
	for i := range tiers {
		tier := tiers[i]
		tier.IsActive = true
		if err := tierRepo.Upsert(ctx, &tier); err != nil {
			log.Fatalf("❌ Failed to upsert tier %s: %v", tier.Name, err)
		}
	}
	log.Printf("✅ %d commission tiers seeded", len(tiers))

	var existing models.Merchant
	if err := db.Where("business_name = ?", businessName).First(&existing).Error; err == nil {
		log.Printf("Merchant %q already exists (id=%d)", businessName, existing.ID)
		return
	}

	merchant := &models.Merchant{
		BusinessName:   businessName,
		BusinessType:   "retail",
		Country:        "CM",
		Phone:          payoutNumber,
		KYCStatus:      models.KYCApproved,
		CommissionTier: models.TierStandard,
		FeePayer:       models.FeePayerMerchant,
		IsActive:       true,
		Settlement: models.SettlementDetails{
			MobileMoneyNumber:       payoutNumber,
			MinimumSettlementAmount: settings.Settlement.MinimumAmount,
		},
	}
	if err := repositories.NewMerchantRepository(db).Create(ctx, merchant); err != nil {
		log.Fatalf("❌ Failed to create merchant: %v", err)
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		log.Fatalf("❌ Failed to generate api key: %v", err)
	}
	if err := repositories.NewAPIKeyRepository(db).Create(ctx, &models.APIKey{
		MerchantID: merchant.ID,
		Name:       "default",
		Prefix:     key.Prefix,
		SecretHash: key.Hash,
		IsActive:   true,
	}); err != nil {
		log.Fatalf("❌ Failed to store api key: %v", err)
	}

	log.Printf("✅ Merchant %q created (id=%d)", merchant.BusinessName, merchant.ID)
	log.Printf("🔑 API key (shown once): %s", key.Key)

	if webhookURL == "" {
		return
	}

	secret, err := utils.GenerateWebhookSecret()
	if err != nil {
		log.Fatalf("❌ Failed to generate webhook secret: %v", err)
	}
	sub := &models.WebhookSubscription{
		MerchantID: merchant.ID,
		URL:        webhookURL,
		Events: pq.StringArray{
			models.EventPaymentSuccess,
			models.EventPaymentFailed,
			models.EventSettlementCompleted,
		},
		Secret:   secret,
		IsActive: true,
	}
	if err := repositories.NewWebhookRepository(db).CreateSubscription(ctx, sub); err != nil {
		log.Fatalf("❌ Failed to create webhook subscription: %v", err)
	}
	log.Printf("🔑 Webhook secret for %s (shown once): %s", webhookURL, secret)
}
