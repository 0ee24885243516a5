package routes

import (
	"refmart/config"
	"refmart/controllers/activations"
	"refmart/controllers/members"
	"refmart/controllers/reports"
	"refmart/controllers/wallets"
	"refmart/middlewares"

	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, cfg *config.AppConfig) {
	api := app.Group("/api", middlewares.APIKeyAuth(cfg.APIKey))

	api.Post("/members/register", members.Register)

	api.Post("/activations/prime", activations.Prime)
	api.Post("/activations/monthly", activations.Monthly)
	api.Post("/activations/franchise", activations.Franchise)

	api.Get("/wallets/:code/balance", wallets.Balance)
	api.Get("/wallets/:code/transactions", wallets.Transactions)
	api.Post("/wallets/withdraw/preview", wallets.PreviewWithdraw)
	api.Post("/wallets/withdraw", wallets.Withdraw)
	api.Post("/wallets/adjust", wallets.Adjust)

	api.Get("/reports/matrix/:code/:pool", reports.MatrixProgress)
	api.Post("/reports/matrix/:code/:pool/rebuild", reports.RebuildMatrixProgress)
	api.Get("/reports/policy", reports.Policy)
}
