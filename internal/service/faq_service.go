package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kweaver00/askgraph/internal/cache"
	"github.com/kweaver00/askgraph/internal/model"
	appErr "github.com/kweaver00/askgraph/internal/pkg/errors"
	"github.com/kweaver00/askgraph/internal/repo"
)

// FAQService manages curated question/answer pairs. Every mutation clears
// the answer cache so stale FAQ answers cannot outlive an edit.
type FAQService struct {
	faqs    *repo.FAQRepo
	answers *cache.AnswerCache
}

func NewFAQService(faqs *repo.FAQRepo, answers *cache.AnswerCache) *FAQService {
	return &FAQService{faqs: faqs, answers: answers}
}

func (s *FAQService) Create(ctx context.Context, question, answer, category string) (*model.FAQ, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", appErr.ErrInvalid)
	}
	now := time.Now().UnixMilli()
	faq := &model.FAQ{
		ID:       newID(),
		Question: question,
		Answer:   answer,
		Category: strings.TrimSpace(category),
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.faqs.Create(ctx, faq); err != nil {
		return nil, err
	}
	s.answers.Clear()
	return faq, nil
}

func (s *FAQService) Update(ctx context.Context, id, question, answer, category string) (*model.FAQ, error) {
	faq, err := s.faqs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if question = strings.TrimSpace(question); question != "" {
		faq.Question = question
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		faq.Answer = answer
	}
	faq.Category = strings.TrimSpace(category)
	faq.Mtime = time.Now().UnixMilli()
	if err := s.faqs.Update(ctx, faq); err != nil {
		return nil, err
	}
	s.answers.Clear()
	return faq, nil
}

func (s *FAQService) Delete(ctx context.Context, id string) error {
	if err := s.faqs.Delete(ctx, id); err != nil {
		return err
	}
	s.answers.Clear()
	return nil
}

func (s *FAQService) Get(ctx context.Context, id string) (*model.FAQ, error) {
	return s.faqs.Get(ctx, id)
}

func (s *FAQService) List(ctx context.Context, category string) ([]model.FAQ, error) {
	return s.faqs.List(ctx, category)
}

func (s *FAQService) Categories(ctx context.Context) ([]string, error) {
	return s.faqs.ListCategories(ctx)
}
