package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

func init() {
	// Report json field names in validation errors.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Requests.

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type addStudentRequest struct {
	Name       string `json:"name" binding:"required"`
	RollNumber string `json:"roll_number" binding:"required"`
}

type updateStudentRequest struct {
	Name string `json:"name" binding:"required"`
}

// Status is a pointer so that an explicit false passes the required check.
type attendanceRequest struct {
	Date   string `json:"date" binding:"required"`
	Status *bool  `json:"status" binding:"required"`
}

// Responses.

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type studentResponse struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
}

type rollCallEntry struct {
	Student    string `json:"student"`
	RollNumber string `json:"roll_number"`
	Status     string `json:"status"`
}

type historyEntry struct {
	Date   model.Date `json:"date"`
	Status bool       `json:"status"`
}

type percentageResponse struct {
	RollNumber           string  `json:"roll_number"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// bindError turns a gin binding failure into an input error.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return apperr.Input("%s is required", fe.Field())
		}
		return apperr.Input("%s is invalid", fe.Field())
	}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		return apperr.Input("malformed JSON body")
	case errors.As(err, &typ):
		return apperr.Input("%s has the wrong type", typ.Field)
	}
	return apperr.Input("invalid request body: %s", err)
}

func parseDate(s string) (model.Date, error) {
	d, err := model.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return model.Date{}, apperr.Input("%s", err)
	}
	return d, nil
}

func (r attendanceRequest) values() (model.Date, bool, error) {
	d, err := parseDate(r.Date)
	if err != nil {
		return model.Date{}, false, err
	}
	if r.Status == nil {
		return model.Date{}, false, apperr.Input("status is required")
	}
	return d, *r.Status, nil
}
