package dto

type LogoTextRequest struct {
	Text string `json:"text" validate:"required,min=1,max=64"`
}
