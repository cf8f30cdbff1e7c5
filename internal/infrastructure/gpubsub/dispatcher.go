// Package gpubsub entrega corridas de sincronización por Google Cloud Pub/Sub.
// El mensaje solo lleva el id de la corrida; el suscriptor push la ejecuta con POST /api/internal/pubsub/sync.
package gpubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/jhoicas/Integraciones-api/internal/application/ports"
	"github.com/jhoicas/Integraciones-api/internal/domain/entity"
	"github.com/jhoicas/Integraciones-api/pkg/logger"
)

// SyncMessage contenido del mensaje publicado.
type SyncMessage struct {
	RunID     string `json:"run_id"`
	CompanyID string `json:"company_id"`
	SyncType  string `json:"sync_type"`
}

// PushEnvelope cuerpo que Pub/Sub envía al endpoint push.
type PushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePush extrae el SyncMessage de un cuerpo push.
func DecodePush(body []byte) (SyncMessage, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return SyncMessage{}, fmt.Errorf("sobre push inválido: %w", err)
	}
	var msg SyncMessage
	if err := json.Unmarshal(env.Message.Data, &msg); err != nil {
		return SyncMessage{}, fmt.Errorf("mensaje inválido: %w", err)
	}
	if msg.RunID == "" {
		return SyncMessage{}, errors.New("mensaje sin run_id")
	}
	return msg, nil
}

// NewClient crea el cliente de Pub/Sub. Sin credenciales explícitas usa Application Default Credentials.
func NewClient(ctx context.Context, projectID, credentialsJSON string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID requerido")
	}
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

// Dispatcher implementa ports.SyncDispatcher publicando en un tópico.
type Dispatcher struct {
	topic *pubsub.Topic
	log   *logger.Logger
}

var _ ports.SyncDispatcher = (*Dispatcher)(nil)

// NewDispatcher obtiene el tópico y lo crea si no existe.
func NewDispatcher(ctx context.Context, client *pubsub.Client, topicID string, log *logger.Logger) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("cliente pubsub nil")
	}
	if topicID == "" {
		return nil, errors.New("PUBSUB_TOPIC requerido")
	}
	if log == nil {
		log = logger.Nop()
	}
	t := client.Topic(topicID)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("consultar tópico %q: %w", topicID, err)
	}
	if !ok {
		if t, err = client.CreateTopic(ctx, topicID); err != nil {
			return nil, fmt.Errorf("crear tópico %q: %w", topicID, err)
		}
	}
	return &Dispatcher{topic: t, log: log.Named("pubsub")}, nil
}

// Dispatch publica la corrida y espera la confirmación del servidor.
func (d *Dispatcher) Dispatch(ctx context.Context, run *entity.SyncRun) error {
	data, err := json.Marshal(SyncMessage{RunID: run.ID, CompanyID: run.CompanyID, SyncType: run.SyncType})
	if err != nil {
		return err
	}
	res := d.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"company_id": run.CompanyID, "sync_type": run.SyncType},
	})
	id, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publicar corrida %s: %w", run.ID, err)
	}
	d.log.Info().Str("sync_id", run.ID).Str("message_id", id).Msg("corrida publicada")
	return nil
}

// Stop vacía los mensajes pendientes del tópico.
func (d *Dispatcher) Stop() {
	d.topic.Stop()
}
