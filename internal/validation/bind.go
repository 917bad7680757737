package validation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

type normalizer interface {
	Normalize()
}

// BindAndValidate binds JSON body into `out`, normalizes it and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}

	if n, ok := out.(normalizer); ok {
		n.Normalize()
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": FieldErrors(err),
		})
		return err
	}
	return nil
}

// FieldErrors flattens validator errors into json field name -> failed rule.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[jsonName(fe)] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}

var jsonNames = map[string]string{
	"Name":       "name",
	"Email":      "email",
	"Phone":      "phone",
	"Currency":   "currency",
	"PurchaseID": "purchaseId",
	"OrderID":    "razorpay_order_id",
	"PaymentID":  "razorpay_payment_id",
	"Signature":  "razorpay_signature",
}

func jsonName(fe validatorv10.FieldError) string {
	if n, ok := jsonNames[fe.StructField()]; ok {
		return n
	}
	return fe.Field()
}
