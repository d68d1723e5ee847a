package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companies/internal/company/controller"
	"github.com/gartstein/companies/internal/company/db"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/handlers"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/gartstein/companies/internal/company/openapi"
	"github.com/gartstein/companies/internal/company/registry"
	"github.com/gartstein/companies/internal/company/scheduler"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// stack is a fully wired service behind a test HTTP server.
type stack struct {
	registry *registry.Registry
	service  *controller.CompanyService
	server   *httptest.Server
}

func newStack(t *testing.T, producer controller.EventProducer, logger *zap.Logger) *stack {
	t.Helper()

	reg := registry.New()
	svc := controller.NewCompanyService(reg, producer, logger)
	docs, err := openapi.Load()
	if err != nil {
		t.Fatal("openapi.Load failed:", err)
	}
	h, err := handlers.NewHTTPHandler(handlers.NewCompanyHandler(svc, docs, logger), "", logger)
	if err != nil {
		t.Fatal("NewHTTPHandler failed:", err)
	}
	return &stack{registry: reg, service: svc, server: httptest.NewServer(h)}
}

type response struct {
	status int
	header http.Header
	body   string
}

func (st *stack) do(t *testing.T, method, path, body string) response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, st.server.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := st.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return response{status: resp.StatusCode, header: resp.Header, body: string(b)}
}

type HTTPTestSuite struct {
	suite.Suite
	logger *zap.Logger
	audit  *db.Repository
	stack  *stack
}

func TestHTTPSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}

func (s *HTTPTestSuite) SetupSuite() {
	s.logger = zap.NewNop()
}

func (s *HTTPTestSuite) SetupTest() {
	repo, err := db.NewRepository(&db.Config{Driver: db.DriverSQLite, Path: ":memory:"}, s.logger)
	s.Require().NoError(err)
	s.audit = repo
	s.stack = newStack(s.T(), events.Fanout{repo}, s.logger)
}

func (s *HTTPTestSuite) TearDownTest() {
	s.stack.server.Close()
	s.Require().NoError(s.audit.Close())
}

func (s *HTTPTestSuite) TestCreateScenario() {
	resp := s.stack.do(s.T(), http.MethodPost, models.BasePath, `{"name":"Gamma","industry":"Retail"}`)

	s.Equal(http.StatusCreated, resp.status)
	s.Equal("/rest/v1/companies/3", resp.header.Get("Location"))
	s.JSONEq(`{"id":3,"name":"Gamma","industry":"Retail","address":""}`, resp.body)

	list := s.stack.do(s.T(), http.MethodGet, models.BasePath, "")
	s.JSONEq(`[{"id":1,"name":"Acme Corp"},{"id":2,"name":"Beta Ltd"},{"id":3,"name":"Gamma"}]`, list.body)

	entries, err := s.audit.EntriesForCompany(context.Background(), 3)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(string(events.CompanyCreated), entries[0].EventType)
	s.Equal("Gamma", entries[0].CompanyName)
}

func (s *HTTPTestSuite) TestCreateWithoutName() {
	resp := s.stack.do(s.T(), http.MethodPost, models.BasePath, `{"industry":"Retail"}`)

	s.Equal(http.StatusBadRequest, resp.status)
	s.JSONEq(`{"error":"Invalid request payload."}`, resp.body)
	s.Equal(models.Seed(), s.stack.registry.Snapshot())

	entries, err := s.audit.ListEntries(context.Background(), 0)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *HTTPTestSuite) TestPatchScenario() {
	resp := s.stack.do(s.T(), http.MethodPatch, "/rest/v1/companies/1", `{"name":"Acme Corporation"}`)

	s.Equal(http.StatusOK, resp.status)
	var got models.Company
	s.Require().NoError(json.Unmarshal([]byte(resp.body), &got))
	s.Equal("Acme Corporation", got.Name)
	s.Equal("Technology", got.Industry)

	fetched := s.stack.do(s.T(), http.MethodGet, "/rest/v1/companies/1", "")
	s.JSONEq(resp.body, fetched.body)
}

func (s *HTTPTestSuite) TestDeleteScenario() {
	resp := s.stack.do(s.T(), http.MethodDelete, "/rest/v1/companies/99", "")
	s.Equal(http.StatusNotFound, resp.status)
	s.JSONEq(`{"error":"Company not found."}`, resp.body)

	resp = s.stack.do(s.T(), http.MethodDelete, "/rest/v1/companies/2", "")
	s.Equal(http.StatusNoContent, resp.status)
	s.Empty(resp.body)

	resp = s.stack.do(s.T(), http.MethodGet, "/rest/v1/companies/2", "")
	s.Equal(http.StatusNotFound, resp.status)

	entries, err := s.audit.EntriesForCompany(context.Background(), 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(string(events.CompanyDeleted), entries[0].EventType)
}

func (s *HTTPTestSuite) TestNonNumericID() {
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp := s.stack.do(s.T(), method, "/rest/v1/companies/abc", "")
		s.Equal(http.StatusNotFound, resp.status, method)
		s.JSONEq(`{"error":"Company not found."}`, resp.body, method)
	}
}

func (s *HTTPTestSuite) TestDocs() {
	resp := s.stack.do(s.T(), http.MethodGet, openapi.JSONPath, "")
	s.Equal(http.StatusOK, resp.status)

	var doc struct {
		OpenAPI string                            `json:"openapi"`
		Paths   map[string]map[string]interface{} `json:"paths"`
	}
	s.Require().NoError(json.Unmarshal([]byte(resp.body), &doc))
	s.Equal("3.0.0", doc.OpenAPI)
	s.Contains(doc.Paths, "/rest/v1/companies")
	s.Contains(doc.Paths, "/rest/v1/companies/{companyId}")

	page := s.stack.do(s.T(), http.MethodGet, openapi.DocsPath, "")
	s.Equal(http.StatusOK, page.status)
	s.Contains(page.header.Get("Content-Type"), "text/html")
}

func (s *HTTPTestSuite) TestScheduledReset() {
	s.stack.do(s.T(), http.MethodPost, models.BasePath, `{"name":"Gamma","industry":"Retail"}`)
	s.stack.do(s.T(), http.MethodDelete, "/rest/v1/companies/1", "")

	task := scheduler.NewResetTask(s.stack.service, 20*time.Millisecond, s.logger)
	s.Require().NoError(task.Start(context.Background()))
	defer task.Stop()

	s.Eventually(func() bool {
		return assert.ObjectsAreEqual(models.Seed(), s.stack.registry.Snapshot())
	}, 2*time.Second, 10*time.Millisecond)

	list := s.stack.do(s.T(), http.MethodGet, models.BasePath, "")
	s.JSONEq(`[{"id":1,"name":"Acme Corp"},{"id":2,"name":"Beta Ltd"}]`, list.body)

	resp := s.stack.do(s.T(), http.MethodPost, models.BasePath, `{"name":"Delta","industry":"Energy"}`)
	s.Equal("/rest/v1/companies/3", resp.header.Get("Location"))
}

// KafkaTestSuite runs against a real broker named by KAFKA_BROKERS.
type KafkaTestSuite struct {
	suite.Suite
	brokers  []string
	topic    string
	producer *events.Producer
	reader   *kafka.Reader
	stack    *stack
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	suite.Run(t, &KafkaTestSuite{brokers: strings.Split(brokers, ",")})
}

func (s *KafkaTestSuite) SetupSuite() {
	s.topic = "companies-test-" + uuid.NewString()

	producer, err := events.NewProducer(s.brokers, zap.NewNop(), s.topic)
	s.Require().NoError(err, "Kafka producer initialization failed")
	s.producer = producer

	// Wait for partition metadata before reading.
	err = backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", s.brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()
		partitions, err := conn.ReadPartitions(s.topic)
		if err != nil || len(partitions) == 0 {
			return fmt.Errorf("topic %s not found", s.topic)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	s.Require().NoError(err, "Kafka topic check failed")

	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.brokers,
		GroupID:     s.topic,
		Topic:       s.topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	s.stack = newStack(s.T(), s.producer, zap.NewNop())
}

func (s *KafkaTestSuite) TearDownSuite() {
	if s.stack != nil {
		s.stack.server.Close()
	}
	if s.producer != nil {
		s.producer.Close()
	}
	if s.reader != nil {
		_ = s.reader.Close()
	}
}

func (s *KafkaTestSuite) TestEventsPublished() {
	s.stack.do(s.T(), http.MethodPost, models.BasePath, `{"name":"Gamma","industry":"Retail"}`)
	s.stack.do(s.T(), http.MethodPatch, "/rest/v1/companies/3", `{"address":"1 Main St"}`)
	s.stack.do(s.T(), http.MethodDelete, "/rest/v1/companies/3", "")
	s.stack.service.ResetCompanies(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Company events share a key, so they keep their order on one partition.
	var companyEvents []events.EventType
	resets := 0
	for i := 0; i < 4; i++ {
		msg, err := s.reader.ReadMessage(ctx)
		s.Require().NoError(err, "waiting for event %d", i)

		var event events.Event
		s.Require().NoError(json.Unmarshal(msg.Value, &event))

		if event.Type == events.CompaniesReset {
			s.Nil(event.Company)
			s.Empty(msg.Key)
			resets++
			continue
		}
		s.Require().NotNil(event.Company)
		s.Equal(3, event.Company.ID)
		s.Equal("3", string(msg.Key))
		companyEvents = append(companyEvents, event.Type)
	}

	s.Equal(1, resets)
	s.Equal([]events.EventType{events.CompanyCreated, events.CompanyUpdated, events.CompanyDeleted}, companyEvents)
}
