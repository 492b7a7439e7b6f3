package handlers

import (
	"io"
	"net/http"

	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

func ListPlans(c *gin.Context) {
	utils.Success(c, gin.H{"plans": getServices().Billing.ListPlans(c.Request.Context())})
}

type CheckoutRequest struct {
	PlanID  string `json:"plan_id"`
	PriceID string `json:"price_id"`
}

func CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.PlanID == "" && req.PriceID == "" {
		utils.Error(c, http.StatusBadRequest, "plan_id or price_id is required")
		return
	}

	out, err := getServices().Billing.CreateCheckout(c.Request.Context(), c.GetUint("user_id"), req.PlanID, req.PriceID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

// StripeWebhook verifies and applies billing events. The raw body is needed
// for signature verification, so this route must not go through any body
// parsing middleware.
func StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to read body")
		return
	}

	err = getServices().Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"received": true})
}
