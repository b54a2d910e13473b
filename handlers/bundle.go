package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Compliance endpoints
	GetRequirementsHandler gin.HandlerFunc
	EvaluateHandler        gin.HandlerFunc

	// Checkout document endpoints
	StartCheckoutSession gin.HandlerFunc
	GetCheckoutSession   gin.HandlerFunc
	UpdateIdentity       gin.HandlerFunc
	ChangeCategory       gin.HandlerFunc
	ApplySlotEvent       gin.HandlerFunc
	UploadDocument       gin.HandlerFunc
	FinalizeCheckout     gin.HandlerFunc

	// Agreement endpoints
	OpenAgreement     gin.HandlerFunc
	GetAgreement      gin.HandlerFunc
	AgreementHistory  gin.HandlerFunc
	SignAgreement     gin.HandlerFunc
	GenerateAgreement gin.HandlerFunc
}

// NewHandlerBundle wires the handler methods into a bundle.
func NewHandlerBundle(ch *ComplianceHandler, co *CheckoutHandler, ah *AgreementHandler) *HandlerBundle {
	return &HandlerBundle{
		GetRequirementsHandler: ch.GetRequirementsHandler,
		EvaluateHandler:        ch.EvaluateHandler,

		StartCheckoutSession: co.StartSessionHandler,
		GetCheckoutSession:   co.GetSessionHandler,
		UpdateIdentity:       co.UpdateIdentityHandler,
		ChangeCategory:       co.ChangeCategoryHandler,
		ApplySlotEvent:       co.SlotEventHandler,
		UploadDocument:       co.UploadDocumentHandler,
		FinalizeCheckout:     co.FinalizeHandler,

		OpenAgreement:     ah.OpenAgreementHandler,
		GetAgreement:      ah.GetAgreementHandler,
		AgreementHistory:  ah.HistoryHandler,
		SignAgreement:     ah.SignHandler,
		GenerateAgreement: ah.GenerateHandler,
	}
}
