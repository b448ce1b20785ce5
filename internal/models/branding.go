package models

import "time"

type Branding struct {
	AppName   string    `json:"appName"`
	DeptName  string    `json:"deptName"`
	IconType  string    `json:"iconType"` // "Sparkles" | "GraduationCap" | "Landmark" | "Calculator" | "BarChart3"
	UpdatedAt time.Time `json:"updated_at"`
}

var BrandingIcons = []string{"Sparkles", "GraduationCap", "Landmark", "Calculator", "BarChart3"}

func DefaultBranding() Branding {
	return Branding{
		AppName:  "SolvencIA",
		DeptName: "Dpto. Contabilidad y Economía Financiera",
		IconType: "Sparkles",
	}
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type SessionResponse struct {
	SessionToken string `json:"session_token"`
	SessionID    string `json:"session_id"`
	ExpiresIn    int    `json:"expires_in"`
}
