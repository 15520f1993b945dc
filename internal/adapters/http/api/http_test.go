package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atomdellow/autodesktop/internal/adapters/http/api"
	"github.com/atomdellow/autodesktop/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// canonicalDetections is the fixed stub answer the API contract promises.
func canonicalDetections() []api.Detection {
	return []api.Detection{
		{Label: "button", Confidence: 0.95, Box: []int{100, 150, 200, 180}},
		{Label: "text_input", Confidence: 0.88, Box: []int{300, 250, 450, 280}},
		{Label: "scrollbar", Confidence: 0.75, Box: []int{780, 50, 795, 500}},
	}
}

// Mock implementations for testing
type mockService struct {
	detections  []api.Detection
	detectErr   error
	snap        api.Snapshot
	snapErr     error
	recent      []api.Outcome
	recentErr   error
	lastPayload []byte
	detectCalls int
}

func (m *mockService) Detect(_ context.Context, screenshot []byte) ([]api.Detection, error) {
	m.detectCalls++
	m.lastPayload = screenshot
	if m.detectErr != nil {
		return nil, m.detectErr
	}
	return m.detections, nil
}

func (m *mockService) Stats(_ context.Context) (api.Snapshot, error) {
	if m.snapErr != nil {
		return api.Snapshot{}, m.snapErr
	}
	return m.snap, nil
}

func (m *mockService) RecentOutcomes(_ context.Context, n int) ([]api.Outcome, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if n > len(m.recent) {
		return m.recent, nil
	}
	return m.recent[:n], nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func startedStats() map[string]interface{} {
	return map[string]interface{}{
		"started":       true,
		"workerCount":   4,
		"queueSize":     256,
		"windowSize":    1024,
		"queueLength":   3,
		"totalOutcomes": 42,
		"uptimeSeconds": 12.5,
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockService{detections: canonicalDetections()}
		statsProvider := &mockStatsProvider{stats: startedStats()}
		server := api.NewServer(deps, statsProvider, 100)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then all expected routes should be registered", func() {
				So(mux, ShouldNotBeNil)
			})

			Convey("And detect endpoint should be accessible", func() {
				req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"screenshot":"AAAA"}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And metrics endpoint should expose Prometheus text", func() {
				req := httptest.NewRequest("GET", "/metrics", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Len(), ShouldBeGreaterThan, 0)
			})

			Convey("And dashboard endpoint should serve HTML with refresh control", func() {
				req := httptest.NewRequest("GET", "/dashboard", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "id=\"refresh-interval\"")
				So(body, ShouldContainSubstring, "id=\"refresh-control\"")
			})

			Convey("And unknown paths should fall through to 404", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestDetectHandler_HandleDetect(t *testing.T) {
	Convey("Given a detect handler", t, func() {
		deps := &mockService{detections: canonicalDetections()}
		handler := api.NewDetectHandler(deps)

		Convey("When handling a valid POST request", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"screenshot":"AAAA"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the exact canonical payload", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(w.Body.String(), ShouldEqual, `{"detections":[`+
					`{"label":"button","confidence":0.95,"box":[100,150,200,180]},`+
					`{"label":"text_input","confidence":0.88,"box":[300,250,450,280]},`+
					`{"label":"scrollbar","confidence":0.75,"box":[780,50,795,500]}]}`+"\n")
			})

			Convey("And the raw payload string should reach the pipeline", func() {
				handler.HandleDetect(w, req)
				So(string(deps.lastPayload), ShouldEqual, "AAAA")
			})
		})

		Convey("When the screenshot field is an empty string", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"screenshot":""}`))
			w := httptest.NewRecorder()

			Convey("Then it should still return 200 with detections", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response detectResult
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Detections, ShouldHaveLength, 3)
				So(deps.detectCalls, ShouldEqual, 1)
			})
		})

		Convey("When the screenshot field is absent", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the contract 400 body", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, `{"error":"No screenshot data provided"}`+"\n")
				So(deps.detectCalls, ShouldEqual, 0)
			})
		})

		Convey("When the screenshot field is JSON null", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"screenshot":null}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the contract 400 body", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, `{"error":"No screenshot data provided"}`+"\n")
			})
		})

		Convey("When only unrelated fields are present", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"image":"AAAA","quality":"high"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the contract 400 body", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, `{"error":"No screenshot data provided"}`+"\n")
			})
		})

		Convey("When the body is not valid JSON", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{invalid json`))
			w := httptest.NewRecorder()

			Convey("Then it should return the contract 400 body", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, `{"error":"No screenshot data provided"}`+"\n")
				So(deps.detectCalls, ShouldEqual, 0)
			})
		})

		Convey("When the body is empty", func() {
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(""))
			w := httptest.NewRecorder()

			Convey("Then it should return the contract 400 body", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, `{"error":"No screenshot data provided"}`+"\n")
			})
		})

		Convey("When the pipeline fails", func() {
			deps.detectErr = errors.New("worker pool exhausted")
			req := httptest.NewRequest("POST", "/detect", strings.NewReader(`{"screenshot":"AAAA"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return 500 with the error message", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)

				var response map[string]string
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["error"], ShouldEqual, "worker pool exhausted")
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/detect", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleDetect(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		Convey("When the service is started", func() {
			handler := api.NewHealthHandler(&mockStatsProvider{stats: startedStats()})
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should report ok with counters", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["status"], ShouldEqual, "ok")
				So(response["uptime_seconds"], ShouldEqual, 12.5)
				So(response["queue_length"], ShouldEqual, 3)
				So(response["total_outcomes"], ShouldEqual, 42)
			})
		})

		Convey("When the service has not started yet", func() {
			handler := api.NewHealthHandler(&mockStatsProvider{stats: map[string]interface{}{
				"started": false,
			}})
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should report starting", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["status"], ShouldEqual, "starting")
			})
		})

		Convey("When handling a non-GET request", func() {
			handler := api.NewHealthHandler(&mockStatsProvider{stats: startedStats()})
			req := httptest.NewRequest("POST", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		now := time.Now()
		deps := &mockService{
			snap: api.Snapshot{
				Total:        5,
				Succeeded:    4,
				Failed:       1,
				WindowSize:   5,
				Capacity:     1024,
				AvgLatencyMS: 3.2,
				P50LatencyMS: 3.0,
				P95LatencyMS: 6.1,
				MaxLatencyMS: 6.1,
				LastAt:       now,
				BuiltAt:      now,
			},
			recent: []api.Outcome{
				{At: now, Duration: 3 * time.Millisecond, OK: true, Detections: 3},
				{At: now.Add(-time.Second), Duration: 4 * time.Millisecond, OK: true, Detections: 3},
				{At: now.Add(-2 * time.Second), Duration: 2 * time.Millisecond, OK: false, Detections: 0},
			},
		}
		statsProvider := &mockStatsProvider{stats: startedStats()}
		handler := api.NewStatsHandler(statsProvider, deps, 100)

		Convey("When requesting stats without a recent limit", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return service and window sections", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["service"], ShouldNotBeNil)
				So(response["window"], ShouldNotBeNil)
				So(response["recent"], ShouldBeNil)

				window, ok := response["window"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(window["total"], ShouldEqual, 5)
				So(window["succeeded"], ShouldEqual, 4)
				So(window["failed"], ShouldEqual, 1)
			})
		})

		Convey("When requesting recent outcomes", func() {
			req := httptest.NewRequest("GET", "/stats?recent=2", nil)
			w := httptest.NewRecorder()

			Convey("Then it should include that many entries", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				recent, ok := response["recent"].([]interface{})
				So(ok, ShouldBeTrue)
				So(len(recent), ShouldEqual, 2)
			})
		})

		Convey("When the recent limit is not a number", func() {
			req := httptest.NewRequest("GET", "/stats?recent=abc", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the recent limit is below one", func() {
			req := httptest.NewRequest("GET", "/stats?recent=0", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the recent limit exceeds the maximum", func() {
			req := httptest.NewRequest("GET", "/stats?recent=1000", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return 400 Bad Request", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the window store returns an error", func() {
			deps.snapErr = errors.New("store closed")
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

// Local types for testing
type detectResult struct {
	Detections []api.Detection `json:"detections"`
}
