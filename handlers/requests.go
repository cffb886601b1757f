package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FlexInt 接受 JSON 数字或数字字符串（前端表单提交的都是字符串），空字符串视为 0
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = FlexInt(n)
	return nil
}

// UnmarshalParam 表单绑定时调用
func (f *FlexInt) UnmarshalParam(param string) error {
	raw := strings.TrimSpace(param)
	if raw == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = FlexInt(n)
	return nil
}

type createUserRequest struct {
	FirstName string  `json:"first_name" form:"first_name" validate:"required,max=50"`
	LastName  string  `json:"last_name" form:"last_name" validate:"required,max=50"`
	Age       FlexInt `json:"age" form:"age" validate:"required"`
}

// 空字符串和 0 视为未提供
type updateUserRequest struct {
	FirstName *string  `json:"first_name" form:"first_name" validate:"omitempty,max=50"`
	LastName  *string  `json:"last_name" form:"last_name" validate:"omitempty,max=50"`
	Age       *FlexInt `json:"age" form:"age"`
}

type createTaskRequest struct {
	Name        string  `json:"name" form:"name" validate:"required,max=50"`
	Description *string `json:"description" form:"description"`
	DueDate     *string `json:"due_date" form:"due_date"`
}

// description 提供空字符串表示清空；due_date 为空保持原值
type updateTaskRequest struct {
	Name        *string `json:"name" form:"name" validate:"omitempty,max=50"`
	Description *string `json:"description" form:"description"`
	DueDate     *string `json:"due_date" form:"due_date"`
}

type assignmentRequest struct {
	UserID FlexInt `json:"userId" form:"userId" validate:"required,gt=0"`
	TaskID FlexInt `json:"taskId" form:"taskId" validate:"required,gt=0"`
}

// RequestError 请求体缺字段或格式错误，对应 400
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息里使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestError{Message: err.Error()}
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "gt":
			parts = append(parts, fe.Field()+" must be a positive integer")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return &RequestError{Message: strings.Join(parts, "; ")}
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDueDate nil 或空字符串返回 nil
func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &RequestError{Message: fmt.Sprintf("due_date %q is not a valid date", raw)}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
