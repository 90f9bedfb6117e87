package dto

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,min=2,max=100"`
	Phone       string `json:"phone" binding:"omitempty,min=10,max=15"`
}

type OAuthLoginRequest struct {
	Provider      string `json:"provider" binding:"required,oneof=google"`
	ProviderToken string `json:"provider_token" binding:"required"`
}
