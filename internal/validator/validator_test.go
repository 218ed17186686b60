package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionBody struct {
	Text string `json:"text" binding:"required"`
}

type questionBody struct {
	QuestionText string       `json:"question_text" binding:"required"`
	Marks        int          `json:"marks" binding:"min=1"`
	Options      []optionBody `json:"options" binding:"dive"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst questionBody
	return Bind(c, &dst)
}

func TestBind(t *testing.T) {
	require.NoError(t, Setup())

	t.Run("valid body", func(t *testing.T) {
		assert.Nil(t, bindBody(t, `{"question_text":"2+2?","marks":1,"options":[{"text":"4"}]}`))
	})

	t.Run("uses json names and nested paths", func(t *testing.T) {
		fields := bindBody(t, `{"marks":0,"options":[{"text":""}]}`)
		require.NotNil(t, fields)
		assert.Contains(t, fields, "question_text")
		assert.Contains(t, fields, "marks")
		assert.Contains(t, fields, "options[0].text")
	})

	t.Run("malformed json", func(t *testing.T) {
		fields := bindBody(t, `{"question_text":`)
		assert.Contains(t, fields, "detail")
	})
}
