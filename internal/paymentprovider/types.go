package paymentprovider

import "time"

// Ответ провайдера на проверку транзакции по референсу.
type VerifyTransactionResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string    `json:"status"` // success, failed, abandoned
		Reference string    `json:"reference"`
		Amount    int64     `json:"amount"` // в минорных единицах
		Currency  string    `json:"currency"`
		PaidAt    time.Time `json:"paid_at"`
		Customer  struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
	} `json:"data"`
}
