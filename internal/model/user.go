package model

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5"`
}

// AccountView is the public projection of an Account.
type AccountView struct {
	UserID  string         `json:"userId"`
	Email   string         `json:"email"`
	IsAdmin bool           `json:"isAdmin"`
	Google  *GoogleProfile `json:"google,omitempty"`
}

func NewAccountView(a *Account) AccountView {
	return AccountView{
		UserID:  a.ID,
		Email:   a.Email,
		IsAdmin: a.IsAdmin,
		Google:  a.Google,
	}
}

type Pagination struct {
	PageIndex int `form:"page_index"`
	PageSize  int `form:"page_size"`
}
