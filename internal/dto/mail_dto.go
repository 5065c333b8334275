package dto

type ListMailRequest struct {
	PageToken string `query:"page_token"`
	PageSize  int    `query:"page_size" validate:"min=1,max=50"`
}

type SendMailRequest struct {
	To      string `json:"to" validate:"required"`
	Cc      string `json:"cc"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
