package mocks

//go:generate mockgen -destination=./mock_harbor_api.go -package=mocks github.com/rxtech-lab/harbor-dex-proxy/internal/harbor API
//go:generate mockgen -destination=./mock_event_sink.go -package=mocks github.com/rxtech-lab/harbor-dex-proxy/internal/events Sink
