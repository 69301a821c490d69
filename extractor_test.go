package libraryapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		request   *http.Request
		wantToken string
		wantError error
	}{
		{
			name:    "empty / no header",
			request: &http.Request{},
		},
		{
			name:      "token in header",
			request:   &http.Request{Header: http.Header{"Authorization": []string{fmt.Sprintf("Bearer %s", "i-am-token")}}},
			wantToken: "i-am-token",
		},
		{
			name:      "lowercase scheme",
			request:   &http.Request{Header: http.Header{"Authorization": []string{"bearer i-am-token"}}},
			wantToken: "i-am-token",
		},
		{
			name:      "no bearer",
			request:   &http.Request{Header: http.Header{"Authorization": []string{"i-am-token"}}},
			wantError: ErrInvalidAuthorizationHeader,
		},
		{
			name:      "basic scheme",
			request:   &http.Request{Header: http.Header{"Authorization": []string{"Basic dXNlcjpwYXNz"}}},
			wantError: ErrInvalidAuthorizationHeader,
		},
		{
			name:      "too many parts",
			request:   &http.Request{Header: http.Header{"Authorization": []string{"Bearer a b"}}},
			wantError: ErrInvalidAuthorizationHeader,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			gotToken, gotError := AuthHeaderTokenExtractor(testCase.request)
			if testCase.wantError != nil {
				assert.ErrorIs(t, gotError, testCase.wantError)
			} else {
				assert.NoError(t, gotError)
			}
			assert.Equal(t, testCase.wantToken, gotToken)
		})
	}
}

func Test_CookieTokenExtractor(t *testing.T) {
	t.Run("cookie present", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: "token", Value: "i-am-token"})

		token, err := CookieTokenExtractor("token")(request)
		assert.NoError(t, err)
		assert.Equal(t, "i-am-token", token)
	})

	t.Run("no cookie", func(t *testing.T) {
		token, err := CookieTokenExtractor("token")(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NoError(t, err)
		assert.Empty(t, token)
	})
}

func Test_MultiTokenExtractor(t *testing.T) {
	noopExtractor := func(*http.Request) (string, error) { return "", nil }
	errExtractor := func(*http.Request) (string, error) { return "", errors.New("extraction failure") }
	tokenExtractor := func(*http.Request) (string, error) { return "i-am-token", nil }

	token, err := MultiTokenExtractor(noopExtractor, tokenExtractor)(&http.Request{})
	assert.NoError(t, err)
	assert.Equal(t, "i-am-token", token)

	_, err = MultiTokenExtractor(noopExtractor, errExtractor, tokenExtractor)(&http.Request{})
	assert.EqualError(t, err, "extraction failure")

	token, err = MultiTokenExtractor(noopExtractor)(&http.Request{})
	assert.NoError(t, err)
	assert.Empty(t, token)
}
