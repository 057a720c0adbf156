package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
	"github.com/zalando/go-keyring"

	"github.com/morezero/snapkit-bridge/internal/config"
	"github.com/morezero/snapkit-bridge/pkg/bridge"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
	"github.com/morezero/snapkit-bridge/pkg/provider/remote"
	"github.com/morezero/snapkit-bridge/pkg/provider/sandbox"
	"github.com/morezero/snapkit-bridge/pkg/semver"
)

const serverTestPrefix = "server:server_test"

var testHost = lifecycle.HostInfo{HostID: "activity.main", HostPlatform: "android"}

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

// startBroker runs an in-process COMMS server and returns its URL.
func startBroker(t *testing.T) string {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", serverTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", serverTestPrefix)
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func testConfig(url string) *config.Config {
	return &config.Config{
		COMMSURL:             url,
		COMMSName:            "snapkit-bridge-test",
		BridgeChannel:        "snapkit",
		BridgeSubjectPrefix:  "snapkit.bridge",
		BridgeCodec:          "json",
		EventsSubjectPrefix:  "snapkit.events",
		NativeSubjectPrefix:  "snapkit.native",
		Provider:             config.ProviderSandbox,
		ProviderTimeout:      5 * time.Second,
		RequestTimeout:       2 * time.Second,
		HealthCheckTimeout:   time.Second,
		KeyringService:       "snapkit-bridge-test",
		SandboxDisplayName:   "Server Test",
		SandboxMaxPhotoBytes: sandbox.DefaultMaxPhotoBytes,
		SandboxMaxVideoBytes: sandbox.DefaultMaxVideoBytes,
	}
}

func startServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("%s - Start: %v", serverTestPrefix, err)
	}
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func connectClient(t *testing.T, url string) *comms.Conn {
	t.Helper()
	nc, err := comms.Connect(url, comms.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("%s - failed to connect: %v", serverTestPrefix, err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s - %s Content-Type = %q", serverTestPrefix, path, ct)
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s - %s decode: %v (%s)", serverTestPrefix, path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"verbose", "INFO"},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in).String(); got != tt.want {
			t.Errorf("%s - parseLogLevel(%q) = %s, want %s", serverTestPrefix, tt.in, got, tt.want)
		}
	}
}

func TestStart_SandboxEndToEnd(t *testing.T) {
	url := startBroker(t)
	s := startServer(t, testConfig(url))
	client := bridge.NewClient(connectClient(t, url), bridge.ClientOptions{Timeout: 5 * time.Second})
	ctx := context.Background()

	// Version queries need no host.
	reply, err := client.Call(ctx, "sdkVersion", nil)
	if err != nil || !reply.Ok || reply.Result != sandbox.DefaultSDKVersion {
		t.Fatalf("%s - sdkVersion = %+v, %v", serverTestPrefix, reply, err)
	}

	reply, err = client.Call(ctx, "isInstalled", nil)
	if err != nil {
		t.Fatalf("%s - isInstalled: %v", serverTestPrefix, err)
	}
	if reply.Ok || reply.Error == nil || reply.Error.Code != dispatcher.CodeNoHostContext {
		t.Errorf("%s - isInstalled unbound = %+v", serverTestPrefix, reply)
	}

	status, err := client.Attach(ctx, testHost)
	if err != nil || status.State != "bound" || status.HostID != testHost.HostID {
		t.Fatalf("%s - Attach = %+v, %v", serverTestPrefix, status, err)
	}

	reply, err = client.Call(ctx, "isSnapchatInstalled", nil)
	if err != nil || !reply.Ok || reply.Result != true {
		t.Errorf("%s - isSnapchatInstalled = %+v, %v", serverTestPrefix, reply, err)
	}
	reply, err = client.Call(ctx, "login", nil)
	if err != nil || !reply.Ok || reply.Result != "Login Success" {
		t.Errorf("%s - login = %+v, %v", serverTestPrefix, reply, err)
	}
	reply, err = client.Call(ctx, "getCurrentUser", nil)
	if err != nil || !reply.Ok {
		t.Fatalf("%s - getCurrentUser = %+v, %v", serverTestPrefix, reply, err)
	}
	if user, _ := reply.Result.(map[string]interface{}); user["displayName"] != "Server Test" {
		t.Errorf("%s - displayName = %v", serverTestPrefix, user["displayName"])
	}
	reply, err = client.Call(ctx, "shareToStory", nil)
	if err != nil || !reply.NotImplemented {
		t.Errorf("%s - unknown method = %+v, %v", serverTestPrefix, reply, err)
	}

	var state StateOutput
	if code := get(t, s, "/state", &state); code != http.StatusOK {
		t.Errorf("%s - /state = %d", serverTestPrefix, code)
	}
	if state.State != "bound" || state.HostID != testHost.HostID || state.Platform != "android" {
		t.Errorf("%s - state = %+v", serverTestPrefix, state)
	}
	if state.SDKGate != "*" {
		t.Errorf("%s - SDKGate = %q, want *", serverTestPrefix, state.SDKGate)
	}

	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("%s - Shutdown: %v", serverTestPrefix, err)
	}
	if _, err := client.Call(ctx, "isInstalled", nil); !errors.Is(err, bridge.ErrChannelClosed) {
		t.Errorf("%s - call after shutdown err = %v, want ErrChannelClosed", serverTestPrefix, err)
	}
	if s.binder.State() != lifecycle.Unbound {
		t.Errorf("%s - binder state after shutdown = %s", serverTestPrefix, s.binder.State())
	}
}

func TestRoutes(t *testing.T) {
	url := startBroker(t)
	s := startServer(t, testConfig(url))

	var health HealthOutput
	if code := get(t, s, "/health", &health); code != http.StatusOK {
		t.Errorf("%s - /health = %d", serverTestPrefix, code)
	}
	if health.Status != "healthy" || !health.Checks.Comms || !health.Checks.Channel || health.Checks.Database != nil {
		t.Errorf("%s - health = %+v", serverTestPrefix, health)
	}

	var ready map[string]string
	if code := get(t, s, "/ready", &ready); code != http.StatusOK || ready["status"] != "ready" {
		t.Errorf("%s - /ready = %d %v", serverTestPrefix, code, ready)
	}

	var methods MethodsOutput
	get(t, s, "/methods", &methods)
	if methods.Subject != "snapkit.bridge.snapkit" || methods.Channel != "snapkit" {
		t.Errorf("%s - methods subject = %q/%q", serverTestPrefix, methods.Subject, methods.Channel)
	}
	joined := strings.Join(methods.Methods, ",")
	for _, m := range []string{"isInstalled", "callLogin", "sendMedia", "verifyNumber", "sdkVersion"} {
		if !strings.Contains(joined, m) {
			t.Errorf("%s - methods missing %s: %v", serverTestPrefix, m, methods.Methods)
		}
	}

	var state StateOutput
	get(t, s, "/state", &state)
	if state.State != "unbound" || state.HostID != "" || len(state.InFlight) != 0 {
		t.Errorf("%s - state = %+v", serverTestPrefix, state)
	}

	s.channel.Close()
	if code := get(t, s, "/ready", &ready); code != http.StatusServiceUnavailable {
		t.Errorf("%s - /ready on closed channel = %d", serverTestPrefix, code)
	}
	if code := get(t, s, "/health", &health); code != http.StatusServiceUnavailable || health.Status != "unhealthy" {
		t.Errorf("%s - /health on closed channel = %d %+v", serverTestPrefix, code, health)
	}
}

func TestStart_SDKGateRejectsHost(t *testing.T) {
	url := startBroker(t)
	cfg := testConfig(url)
	cfg.SDKVersionConstraint = "3"
	s := startServer(t, cfg)
	client := bridge.NewClient(connectClient(t, url), bridge.ClientOptions{Timeout: 5 * time.Second})
	ctx := context.Background()

	if _, err := client.Attach(ctx, testHost); err != nil {
		t.Fatalf("%s - Attach: %v", serverTestPrefix, err)
	}
	reply, err := client.Call(ctx, "isLoggedIn", nil)
	if err != nil {
		t.Fatalf("%s - isLoggedIn: %v", serverTestPrefix, err)
	}
	if reply.Ok || reply.Error.Code != "IsLoggedInError" {
		t.Fatalf("%s - reply = %+v", serverTestPrefix, reply)
	}
	details, _ := reply.Error.Details.(map[string]interface{})
	if details["code"] != semver.ReasonSDKIncompatible {
		t.Errorf("%s - details = %v", serverTestPrefix, reply.Error.Details)
	}
	if s.gate.String() != "3" {
		t.Errorf("%s - gate = %q", serverTestPrefix, s.gate.String())
	}
}

func TestStart_InvalidSDKConstraint(t *testing.T) {
	url := startBroker(t)
	cfg := testConfig(url)
	cfg.SDKVersionConstraint = "not a range"
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Errorf("%s - expected error for invalid constraint", serverTestPrefix)
	}
}

func TestStart_NoBroker(t *testing.T) {
	cfg := testConfig("nats://127.0.0.1:1")
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Errorf("%s - expected error without a broker", serverTestPrefix)
	}
}

func TestStart_RemoteProvider(t *testing.T) {
	url := startBroker(t)
	cfg := testConfig(url)
	cfg.Provider = config.ProviderRemote
	cfg.BridgeCodec = "cbor"
	startServer(t, cfg)

	hostNC := connectClient(t, url)
	sb := sandbox.New(sandbox.Options{KeyringService: "snapkit-bridge-remote-test", SDKVersion: "2.6.0"})
	set, _ := sb.Factory()(context.Background(), testHost)
	native, err := remote.Serve(context.Background(), hostNC, set, remote.NativeOptions{
		SubjectPrefix: cfg.NativeSubjectPrefix,
		Host:          testHost,
	})
	if err != nil {
		t.Fatalf("%s - remote.Serve: %v", serverTestPrefix, err)
	}
	defer native.Close()
	hostNC.Flush()

	client := bridge.NewClient(connectClient(t, url), bridge.ClientOptions{Timeout: 5 * time.Second})
	ctx := context.Background()
	if _, err := client.Attach(ctx, testHost); err != nil {
		t.Fatalf("%s - Attach: %v", serverTestPrefix, err)
	}

	reply, err := client.Call(ctx, "isInstalled", nil)
	if err != nil || !reply.Ok || reply.Result != true {
		t.Errorf("%s - isInstalled = %+v, %v", serverTestPrefix, reply, err)
	}
	reply, err = client.Call(ctx, "sdkVersion", nil)
	if err != nil || !reply.Ok || reply.Result != "2.6.0" {
		t.Errorf("%s - sdkVersion = %+v, %v", serverTestPrefix, reply, err)
	}
	reply, err = client.Call(ctx, "getAccessToken", nil)
	if err != nil || reply.Ok || reply.Error.Code != "GetAccessTokenError" {
		t.Fatalf("%s - getAccessToken = %+v, %v", serverTestPrefix, reply, err)
	}
	details, _ := reply.Error.Details.(map[string]interface{})
	if details["code"] != "NOT_LOGGED_IN" {
		t.Errorf("%s - details = %v", serverTestPrefix, reply.Error.Details)
	}
}

func TestBuildProvider_Unknown(t *testing.T) {
	cfg := testConfig("")
	cfg.Provider = "ios"
	if _, err := buildProvider(cfg, nil, nil); err == nil {
		t.Errorf("%s - expected error for unknown provider", serverTestPrefix)
	}
	cfg.Provider = config.ProviderRemote
	cfg.BridgeCodec = "xml"
	if _, err := buildProvider(cfg, nil, nil); err == nil {
		t.Errorf("%s - expected error for unknown codec", serverTestPrefix)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "", want: defaultShareLimit},
		{in: "10", want: 10},
		{in: "100000", want: maxShareLimit},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "ten", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s - parseLimit(%q) expected error", serverTestPrefix, tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s - parseLimit(%q) = %d, %v, want %d", serverTestPrefix, tt.in, got, err, tt.want)
		}
	}
}

func TestRoutes_SharesRequireLedger(t *testing.T) {
	url := startBroker(t)
	s := startServer(t, testConfig(url))

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shares", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - /shares without ledger = %d, want 404", serverTestPrefix, rec.Code)
	}
}
