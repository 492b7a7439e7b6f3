package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"clouddrive/config"
	"clouddrive/logger"
	"clouddrive/repositories"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

type PlanOutput struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	StorageLimit   int64  `json:"storage_limit"`
	FileCountLimit int64  `json:"file_count_limit"`
	PriceID        string `json:"price_id,omitempty"`
}

type CheckoutOutput struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type BillingService interface {
	ListPlans(ctx context.Context) []PlanOutput
	CreateCheckout(ctx context.Context, userID uint, planID string, priceID string) (CheckoutOutput, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type billingService struct {
	txManager TxManager
	users     repositories.UserRepository
	quotas    repositories.QuotaRepository
	quota     QuotaService
}

func NewBillingService(txManager TxManager, users repositories.UserRepository, quotas repositories.QuotaRepository, quota QuotaService) BillingService {
	stripe.Key = config.AppConfig.Billing.StripeSecretKey
	return &billingService{txManager: txManager, users: users, quotas: quotas, quota: quota}
}

func (s *billingService) ListPlans(_ context.Context) []PlanOutput {
	plans := config.AppConfig.Billing.Plans
	out := make([]PlanOutput, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanOutput{
			ID:             p.ID,
			Name:           p.Name,
			StorageLimit:   p.StorageLimit,
			FileCountLimit: p.FileCountLimit,
			PriceID:        p.PriceID,
		})
	}
	return out
}

func (s *billingService) CreateCheckout(ctx context.Context, userID uint, planID string, priceID string) (CheckoutOutput, error) {
	plan, ok := config.AppConfig.PlanByID(planID)
	if !ok {
		plan, ok = config.AppConfig.PlanByPriceID(priceID)
	}
	if !ok {
		return CheckoutOutput{}, newAppError(http.StatusBadRequest, "unknown plan", nil)
	}
	if plan.PriceID == "" {
		return CheckoutOutput{}, newAppError(http.StatusBadRequest, "plan does not require checkout", nil)
	}

	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return CheckoutOutput{}, newAppError(http.StatusInternalServerError, "failed to query user", err)
	}

	cfg := config.AppConfig.Billing
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(userID), 10)),
		SuccessURL:        stripe.String(cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(cfg.CheckoutCancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(plan.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": strconv.FormatUint(uint64(userID), 10),
				"plan_id": plan.ID,
			},
		},
	}
	params.AddMetadata("plan_id", plan.ID)

	sess, err := session.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return CheckoutOutput{}, newAppError(http.StatusBadGateway, stripeErr.Msg, err)
		}
		return CheckoutOutput{}, newAppError(http.StatusInternalServerError, "failed to create checkout session", err)
	}

	return CheckoutOutput{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, config.AppConfig.Billing.StripeWebhookSecret)
	if err != nil {
		return newAppError(http.StatusBadRequest, "invalid webhook signature", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.onCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return s.onSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.onSubscriptionDeleted(ctx, event)
	default:
		logger.Debugf("ignoring stripe event %s", event.Type)
		return nil
	}
}

func (s *billingService) onCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return newAppError(http.StatusBadRequest, "malformed checkout session payload", err)
	}

	userID, err := strconv.ParseUint(sess.ClientReferenceID, 10, 64)
	if err != nil {
		return newAppError(http.StatusBadRequest, "checkout session carries no user reference", err)
	}
	planID := sess.Metadata["plan_id"]
	plan, ok := config.AppConfig.PlanByID(planID)
	if !ok {
		return newAppError(http.StatusBadRequest, fmt.Sprintf("checkout session names unknown plan %q", planID), nil)
	}

	return s.applyPlan(ctx, uint(userID), plan)
}

// onSubscriptionUpdated syncs plan changes made outside checkout, such as in
// the Stripe billing portal. The new plan is resolved from the subscription's
// price.
func (s *billingService) onSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return newAppError(http.StatusBadRequest, "malformed subscription payload", err)
	}

	userID, err := strconv.ParseUint(sub.Metadata["user_id"], 10, 64)
	if err != nil {
		return newAppError(http.StatusBadRequest, "subscription carries no user reference", err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		logger.Debugf("subscription %s has no priced items, skipping", sub.ID)
		return nil
	}

	plan, ok := config.AppConfig.PlanByPriceID(sub.Items.Data[0].Price.ID)
	if !ok {
		logger.Debugf("subscription %s price %s matches no plan, skipping", sub.ID, sub.Items.Data[0].Price.ID)
		return nil
	}
	return s.applyPlan(ctx, uint(userID), plan)
}

func (s *billingService) onSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return newAppError(http.StatusBadRequest, "malformed subscription payload", err)
	}

	userID, err := strconv.ParseUint(sub.Metadata["user_id"], 10, 64)
	if err != nil {
		return newAppError(http.StatusBadRequest, "subscription carries no user reference", err)
	}

	free, ok := config.AppConfig.PlanByID("free")
	if !ok {
		return newAppError(http.StatusInternalServerError, "free plan is not configured", nil)
	}
	return s.applyPlan(ctx, uint(userID), free)
}

// applyPlan moves the user's quota row to the plan's limits. Usage counters
// are untouched, so downgrading below current usage simply blocks further
// uploads until the user frees space.
func (s *billingService) applyPlan(ctx context.Context, userID uint, plan config.PlanConfig) error {
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.quota.EnsureQuota(ctx, tx, userID); err != nil {
			return err
		}
		return s.quotas.UpdatePlan(ctx, tx, userID, plan.ID, plan.StorageLimit, plan.FileCountLimit)
	})
	if err != nil {
		return newAppError(http.StatusInternalServerError, "failed to apply plan", err)
	}
	logger.Infof("user %d moved to plan %s", userID, plan.ID)
	return nil
}
