package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/eltafawook-admin/pkg/apiclient"
	"github.com/angelmondragon/eltafawook-admin/pkg/logger"
	"github.com/angelmondragon/eltafawook-admin/pkg/probe"
)

const operationEnqueueWA = "notifications.enqueue_wa"

// waCandidates are the routes a deployment may expose for queuing WhatsApp messages.
var waCandidates = []probe.Candidate{
	{Path: "/notifications/wa/enqueue", Method: http.MethodPost},
	{Path: "/notifications/wa/queue", Method: http.MethodPost},
	{Path: "/notifications/wa/outbox", Method: http.MethodPost},
	{Path: "/notifications/wa/publish", Method: http.MethodPost},
}

// WAMessage is one WhatsApp message to queue on the remote service.
type WAMessage struct {
	To      string            `json:"to"`
	Message string            `json:"message"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// Service queues outbound WhatsApp messages.
type Service interface {
	// EnqueueWA returns queued=false without a network call when To or Message is empty.
	EnqueueWA(ctx context.Context, token string, msg WAMessage) (queued bool, err error)
}

type service struct {
	prober *probe.Prober
	logg   *logger.Logger
}

func NewService(prober *probe.Prober, logg *logger.Logger) (Service, error) {
	if prober == nil {
		return nil, fmt.Errorf("prober required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{prober: prober, logg: logg}, nil
}

func (s *service) EnqueueWA(ctx context.Context, token string, msg WAMessage) (bool, error) {
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" || strings.TrimSpace(msg.Message) == "" {
		return false, nil
	}
	if len(msg.Tags) == 0 {
		msg.Tags = nil
	}

	res, err := s.prober.Try(ctx, operationEnqueueWA, waCandidates, apiclient.RequestOptions{
		Body:      msg,
		AuthToken: token,
	})
	if err != nil {
		return false, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "endpoint", res.Candidate.Path), "wa message queued")
	return true, nil
}
