package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todolst/internal/auth"
	"github.com/patric-chuzhbe/todolst/internal/db/memorystorage"
	"github.com/patric-chuzhbe/todolst/internal/ipchecker"
	"github.com/patric-chuzhbe/todolst/internal/logger"
	"github.com/patric-chuzhbe/todolst/internal/models"
	"github.com/patric-chuzhbe/todolst/internal/service"
	"github.com/patric-chuzhbe/todolst/internal/task"
)

var testSigningKey = []byte("router-test-signing-key")

func newTestServer(t *testing.T, trustedSubnet string) *httptest.Server {
	t.Helper()

	err := logger.Init("debug")
	require.NoError(t, err)

	db, err := memorystorage.New()
	require.NoError(t, err)

	theAuth := auth.New(db, testSigningKey, time.Hour)
	svc := service.New(db)

	checker, err := ipchecker.New(trustedSubnet)
	require.NoError(t, err)

	srv := httptest.NewServer(New(svc, theAuth, theAuth, checker))
	t.Cleanup(srv.Close)

	return srv
}

func registerAndLogin(t *testing.T, client *resty.Client, username, email, password string) string {
	t.Helper()

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{Username: username, Email: email, Password: password}).
		Post("/api/auth/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: email, Password: password}).
		Post("/api/auth/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var loginResponse models.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &loginResponse))
	require.NotEmpty(t, loginResponse.Token)

	return loginResponse.Token
}

func TestAuthAndTaskLifecycle(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	token := registerAndLogin(t, client, "alice", "alice@x.com", "pw1234567")

	// Create.
	resp, err := client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateTaskRequest{Text: "buy milk"}).
		Post("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var created task.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &created))
	assert.Equal(t, "buy milk", created.Text)
	assert.False(t, created.Completed)
	require.NotEmpty(t, created.ID)

	// Toggle complete.
	completed := true
	resp, err = client.R().
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(models.UpdateTaskRequest{Completed: &completed}).
		Put(fmt.Sprintf("/api/todos/%s", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	// List shows the single completed task.
	resp, err = client.R().
		SetAuthToken(token).
		Get("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var tasks []task.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Text)
	assert.True(t, tasks[0].Completed)

	// Delete.
	resp, err = client.R().
		SetAuthToken(token).
		Delete(fmt.Sprintf("/api/todos/%s", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var deleteResponse models.DeleteTaskResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &deleteResponse))
	assert.Equal(t, "Deleted", deleteResponse.Message)

	// The list is empty again.
	resp, err = client.R().
		SetAuthToken(token).
		Get("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	tasks = nil
	require.NoError(t, json.Unmarshal(resp.Body(), &tasks))
	assert.Empty(t, tasks)

	// Deleting again stays a 404, not a crash.
	resp, err = client.R().
		SetAuthToken(token).
		Delete(fmt.Sprintf("/api/todos/%s", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{
			"short password",
			models.RegisterRequest{Username: "bob", Email: "bob@x.com", Password: "short"},
			http.StatusUnprocessableEntity,
		},
		{
			"malformed email",
			models.RegisterRequest{Username: "bob", Email: "not-an-email", Password: "pw1234567"},
			http.StatusUnprocessableEntity,
		},
		{
			"missing username",
			models.RegisterRequest{Email: "bob@x.com", Password: "pw1234567"},
			http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(tt.body).
				Post("/api/auth/register")
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	body := models.RegisterRequest{Username: "carol", Email: "carol@x.com", Password: "pw1234567"}

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/auth/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/auth/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())
}

func TestLoginFailuresShareOneShape(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	_ = registerAndLogin(t, client, "dave", "dave@x.com", "pw1234567")

	wrongPassword, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: "dave@x.com", Password: "wrong-password"}).
		Post("/api/auth/login")
	require.NoError(t, err)

	unknownEmail, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: "nobody@x.com", Password: "wrong-password"}).
		Post("/api/auth/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode())
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode())
	assert.Equal(t, wrongPassword.Body(), unknownEmail.Body(), "responses must not reveal whether the account exists")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	resp, err := client.R().Get("/api/todos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp, err = client.R().
		SetAuthToken("garbage-token").
		Get("/api/todos")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestTasksAreInvisibleAcrossUsers(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	ownerToken := registerAndLogin(t, client, "erin", "erin@x.com", "pw1234567")
	intruderToken := registerAndLogin(t, client, "frank", "frank@x.com", "pw1234567")

	resp, err := client.R().
		SetAuthToken(ownerToken).
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateTaskRequest{Text: "secret plans"}).
		Post("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var created task.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &created))

	// The intruder's list is empty.
	resp, err = client.R().
		SetAuthToken(intruderToken).
		Get("/api/todos")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var tasks []task.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &tasks))
	assert.Empty(t, tasks)

	// Mutations through the intruder's token surface as 404.
	completed := true
	resp, err = client.R().
		SetAuthToken(intruderToken).
		SetHeader("Content-Type", "application/json").
		SetBody(models.UpdateTaskRequest{Completed: &completed}).
		Put(fmt.Sprintf("/api/todos/%s", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp, err = client.R().
		SetAuthToken(intruderToken).
		Delete(fmt.Sprintf("/api/todos/%s", created.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	// The owner still sees the task untouched.
	resp, err = client.R().
		SetAuthToken(ownerToken).
		Get("/api/todos")
	require.NoError(t, err)

	tasks = nil
	require.NoError(t, json.Unmarshal(resp.Body(), &tasks))
	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].Completed)
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t, "")
	client := resty.New().SetBaseURL(srv.URL)

	token := registerAndLogin(t, client, "grace", "grace@x.com", "pw1234567")

	tests := []struct {
		name string
		text string
		code int
	}{
		{"empty", "", http.StatusUnprocessableEntity},
		{"whitespace only", "   ", http.StatusUnprocessableEntity},
		{"trimmed", " hello ", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.R().
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetBody(models.CreateTaskRequest{Text: tt.text}).
				Post("/api/todos")
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode())

			if tt.code == http.StatusCreated {
				var created task.Task
				require.NoError(t, json.Unmarshal(resp.Body(), &created))
				assert.Equal(t, "hello", created.Text)
			}
		})
	}
}

func TestInternalStatsSubnetGating(t *testing.T) {
	t.Run("no trusted subnet configured", func(t *testing.T) {
		srv := newTestServer(t, "")
		client := resty.New().SetBaseURL(srv.URL)

		resp, err := client.R().Get("/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})

	t.Run("client inside the trusted subnet", func(t *testing.T) {
		srv := newTestServer(t, "127.0.0.0/8")
		client := resty.New().SetBaseURL(srv.URL)

		token := registerAndLogin(t, client, "heidi", "heidi@x.com", "pw1234567")
		resp, err := client.R().
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetBody(models.CreateTaskRequest{Text: "counted"}).
			Post("/api/todos")
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode())

		resp, err = client.R().Get("/api/internal/stats")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())

		var stats models.InternalStatsResponse
		require.NoError(t, json.Unmarshal(resp.Body(), &stats))
		assert.Equal(t, int64(1), stats.Users)
		assert.Equal(t, int64(1), stats.Tasks)
	})

	t.Run("client outside the trusted subnet", func(t *testing.T) {
		srv := newTestServer(t, "10.0.0.0/8")
		client := resty.New().SetBaseURL(srv.URL)

		resp, err := client.R().Get("/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})
}
