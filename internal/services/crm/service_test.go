package crm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// fakeStorage is an in-memory StorageManager for handler tests
type fakeStorage struct {
	contacts map[string]*models.Contact
	deals    map[string]*models.Deal
	drafts   []*models.EmailDraft
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		contacts: make(map[string]*models.Contact),
		deals:    make(map[string]*models.Deal),
	}
}

func (f *fakeStorage) ContactStorage() interfaces.ContactStorage   { return (*fakeContacts)(f) }
func (f *fakeStorage) DealStorage() interfaces.DealStorage         { return (*fakeDeals)(f) }
func (f *fakeStorage) DraftStorage() interfaces.DraftStorage       { return (*fakeDrafts)(f) }
func (f *fakeStorage) KeyValueStorage() interfaces.KeyValueStorage { return nil }
func (f *fakeStorage) Close() error                                { return nil }

type fakeContacts fakeStorage

func (f *fakeContacts) SaveContact(ctx context.Context, contact *models.Contact) error {
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContacts) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	contact, ok := f.contacts[id]
	if !ok {
		return nil, fmt.Errorf("%w: contact %s", interfaces.ErrNotFound, id)
	}
	return contact, nil
}

func (f *fakeContacts) GetContacts(ctx context.Context, ids []string) ([]*models.Contact, error) {
	result := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		contact, err := f.GetContact(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, contact)
	}
	return result, nil
}

func (f *fakeContacts) ListContacts(ctx context.Context) ([]*models.Contact, error) {
	result := make([]*models.Contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		result = append(result, c)
	}
	return result, nil
}

func (f *fakeContacts) UpdateContact(ctx context.Context, id string, mutate func(*models.Contact) error) error {
	contact, err := f.GetContact(ctx, id)
	if err != nil {
		return err
	}
	return mutate(contact)
}

func (f *fakeContacts) DeleteContact(ctx context.Context, id string) error {
	delete(f.contacts, id)
	return nil
}

type fakeDeals fakeStorage

func (f *fakeDeals) SaveDeal(ctx context.Context, deal *models.Deal) error {
	f.deals[deal.ID] = deal
	return nil
}

func (f *fakeDeals) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	deal, ok := f.deals[id]
	if !ok {
		return nil, fmt.Errorf("%w: deal %s", interfaces.ErrNotFound, id)
	}
	return deal, nil
}

func (f *fakeDeals) GetDeals(ctx context.Context, ids []string) ([]*models.Deal, error) {
	result := make([]*models.Deal, 0, len(ids))
	for _, id := range ids {
		deal, err := f.GetDeal(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, deal)
	}
	return result, nil
}

func (f *fakeDeals) ListDeals(ctx context.Context) ([]*models.Deal, error) {
	result := make([]*models.Deal, 0, len(f.deals))
	for _, d := range f.deals {
		result = append(result, d)
	}
	return result, nil
}

func (f *fakeDeals) ListOpenDeals(ctx context.Context) ([]*models.Deal, error) {
	return f.ListDeals(ctx)
}

func (f *fakeDeals) UpdateDeal(ctx context.Context, id string, mutate func(*models.Deal) error) error {
	deal, err := f.GetDeal(ctx, id)
	if err != nil {
		return err
	}
	return mutate(deal)
}

func (f *fakeDeals) DeleteDeal(ctx context.Context, id string) error {
	delete(f.deals, id)
	return nil
}

type fakeDrafts fakeStorage

func (f *fakeDrafts) SaveDraft(ctx context.Context, draft *models.EmailDraft) error {
	f.drafts = append(f.drafts, draft)
	return nil
}

func (f *fakeDrafts) ListDrafts(ctx context.Context) ([]*models.EmailDraft, error) {
	return f.drafts, nil
}

func (f *fakeDrafts) ListDraftsByContact(ctx context.Context, contactID string) ([]*models.EmailDraft, error) {
	result := make([]*models.EmailDraft, 0)
	for _, d := range f.drafts {
		if d.ContactID == contactID {
			result = append(result, d)
		}
	}
	return result, nil
}

func newTestCRM(t *testing.T) (*Service, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	storage.contacts["c1"] = &models.Contact{ID: "c1", Name: "Dana Reyes", Company: "Acme"}
	storage.deals["d1"] = &models.Deal{ID: "d1", Name: "Acme renewal", Stage: models.DealStageProposal}
	return NewService(storage, arbor.NewLogger()), storage
}

func enrichJob(params map[string]interface{}) *models.BatchJob {
	return models.NewBatchJob("batch_test", models.JobTypeContactEnrichment, models.ModeImmediate, 1, 0.06,
		models.JobMetadata{EntityIDs: []string{"c1"}, Params: params})
}

func TestApplyEnrichment_WritesEachSubTask(t *testing.T) {
	svc, storage := newTestCRM(t)
	ctx := context.Background()
	job := enrichJob(nil)

	require.NoError(t, svc.applyEnrichment(ctx, job, "c1", models.SubTaskCompanyProfile, "Acme builds widgets."))
	require.NoError(t, svc.applyEnrichment(ctx, job, "c1", models.SubTaskRoleAnalysis, "Dana owns procurement."))
	require.NoError(t, svc.applyEnrichment(ctx, job, "c1", models.SubTaskBuyingSignals, "Recent funding round."))

	contact := storage.contacts["c1"]
	require.NotNil(t, contact.Enrichment)
	assert.Equal(t, "Acme builds widgets.", contact.Enrichment.CompanyProfile)
	assert.Equal(t, "Dana owns procurement.", contact.Enrichment.RoleAnalysis)
	assert.Equal(t, "Recent funding round.", contact.Enrichment.BuyingSignals)
	assert.False(t, contact.Enrichment.EnrichedAt.IsZero())
}

func TestApplyEnrichment_UnknownSubTask(t *testing.T) {
	svc, storage := newTestCRM(t)

	err := svc.applyEnrichment(context.Background(), enrichJob(nil), "c1", "sentiment", "body")
	assert.Error(t, err)
	if enrichment := storage.contacts["c1"].Enrichment; enrichment != nil {
		assert.Empty(t, enrichment.CompanyProfile)
		assert.Empty(t, enrichment.RoleAnalysis)
		assert.Empty(t, enrichment.BuyingSignals)
	}
}

func TestApplyEnrichment_MissingContact(t *testing.T) {
	svc, _ := newTestCRM(t)

	err := svc.applyEnrichment(context.Background(), enrichJob(nil), "c404", models.SubTaskCompanyProfile, "body")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestApplyEmailDraft_SavesDraftWithJobParams(t *testing.T) {
	svc, storage := newTestCRM(t)
	job := models.NewBatchJob("batch_email", models.JobTypeEmailGeneration, models.ModeImmediate, 1, 0.02,
		models.JobMetadata{
			EntityIDs: []string{"c1"},
			Params:    map[string]interface{}{"campaign": "q3-renewals", "tone": "warm"},
		})

	err := svc.applyEmailDraft(context.Background(), job, "c1", models.SubTaskEmailDraft, "Hi Dana, ...")
	require.NoError(t, err)

	require.Len(t, storage.drafts, 1)
	draft := storage.drafts[0]
	assert.Equal(t, "c1", draft.ContactID)
	assert.Equal(t, "batch_email", draft.JobID)
	assert.Equal(t, "q3-renewals", draft.Campaign)
	assert.Equal(t, "warm", draft.Tone)
	assert.Equal(t, "Hi Dana, ...", draft.Body)
	assert.NotEmpty(t, draft.ID)
}

func TestApplyEmailDraft_ContactGone(t *testing.T) {
	svc, storage := newTestCRM(t)
	job := models.NewBatchJob("batch_email", models.JobTypeEmailGeneration, models.ModeImmediate, 1, 0.02,
		models.JobMetadata{EntityIDs: []string{"c404"}})

	err := svc.applyEmailDraft(context.Background(), job, "c404", models.SubTaskEmailDraft, "Hi, ...")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Empty(t, storage.drafts)
}

func TestApplyDealAnalysis_WritesEachSubTask(t *testing.T) {
	svc, storage := newTestCRM(t)
	ctx := context.Background()
	job := models.NewBatchJob("batch_pipe", models.JobTypePipelineAnalysis, models.ModeDeferred, 1, 0.02,
		models.JobMetadata{EntityIDs: []string{"d1"}})

	require.NoError(t, svc.applyDealAnalysis(ctx, job, "d1", models.SubTaskDealRisk, "Champion left the company."))
	require.NoError(t, svc.applyDealAnalysis(ctx, job, "d1", models.SubTaskNextSteps, "Schedule exec alignment call."))

	deal := storage.deals["d1"]
	require.NotNil(t, deal.Analysis)
	assert.Equal(t, "Champion left the company.", deal.Analysis.Risk)
	assert.Equal(t, "Schedule exec alignment call.", deal.Analysis.NextSteps)
	assert.False(t, deal.Analysis.AnalyzedAt.IsZero())

	assert.Error(t, svc.applyDealAnalysis(ctx, job, "d1", "forecast", "body"))
}

func TestApplySocialProfile_WritesEachNetwork(t *testing.T) {
	svc, storage := newTestCRM(t)
	ctx := context.Background()
	job := models.NewBatchJob("batch_social", models.JobTypeSocialResearch, models.ModeImmediate, 1, 0.04,
		models.JobMetadata{EntityIDs: []string{"c1"}})

	require.NoError(t, svc.applySocialProfile(ctx, job, "c1", models.SubTaskLinkedIn, "Active poster on supply chain topics."))
	require.NoError(t, svc.applySocialProfile(ctx, job, "c1", models.SubTaskTwitter, "Rarely posts."))

	contact := storage.contacts["c1"]
	require.NotNil(t, contact.Social)
	assert.Equal(t, "Active poster on supply chain topics.", contact.Social.LinkedIn)
	assert.Equal(t, "Rarely posts.", contact.Social.Twitter)
	assert.False(t, contact.Social.ResearchedAt.IsZero())

	assert.Error(t, svc.applySocialProfile(ctx, job, "c1", "mastodon", "body"))
}
