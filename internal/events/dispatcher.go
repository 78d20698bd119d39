package events

import (
	"context"

	"backoffice/internal/domain"
)

type batchKey struct{}

type batch struct {
	events []domain.Event
}

// Dispatcher публикует события только после успешной транзакции.
// Внутри Transactional события копятся в контексте; при ошибке они отбрасываются.
type Dispatcher struct {
	sink domain.EventPublisher
}

func NewDispatcher(sink domain.EventPublisher) *Dispatcher {
	return &Dispatcher{sink: sink}
}

var _ domain.EventPublisher = (*Dispatcher)(nil)

// Publish вне Transactional отправляет сразу
func (d *Dispatcher) Publish(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	if b, ok := ctx.Value(batchKey{}).(*batch); ok {
		b.events = append(b.events, events...)
		return
	}
	d.sink.Publish(ctx, events)
}

// Transactional вложенные вызовы присоединяются к внешнему батчу
func (d *Dispatcher) Transactional(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(batchKey{}).(*batch); ok {
		return fn(ctx)
	}
	b := &batch{}
	if err := fn(context.WithValue(ctx, batchKey{}, b)); err != nil {
		return err
	}
	if len(b.events) > 0 {
		d.sink.Publish(ctx, b.events)
	}
	return nil
}

// Fanout рассылает события нескольким получателям по очереди
type Fanout []domain.EventPublisher

func (f Fanout) Publish(ctx context.Context, events []domain.Event) {
	for _, p := range f {
		p.Publish(ctx, events)
	}
}
