package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builtf/backend/internal/store"
	"builtf/backend/internal/utils"
)

const ColServices = "services"

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

func IsErrNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsErrBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// ProvidersPath is the nested providers collection for one service.
// Providers exist only under a service path; deleting the service does not
// cascade here.
func ProvidersPath(serviceID string) string {
	return ColServices + "/" + serviceID + "/providers"
}

type Repo struct {
	remote store.Remote
}

func NewRepo(remote store.Remote) *Repo {
	return &Repo{remote: remote}
}

func (r *Repo) List(ctx context.Context) ([]Service, error) {
	recs, err := r.remote.GetAll(ctx, ColServices)
	if err != nil {
		return nil, err
	}
	out := make([]Service, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeService(rec))
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Service, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: serviceId is required", ErrBadRequest)
	}
	rec, err := r.remote.GetDoc(ctx, ColServices+"/"+id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: service %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	svc := decodeService(rec)
	return &svc, nil
}

// SearchFields derives the search normalization fields written next to every
// sectionTitle.
func SearchFields(sectionTitle string) map[string]any {
	nameLower := utils.NormalizeNameLower(sectionTitle)
	return map[string]any{
		"nameLower": nameLower,
		"keywords":  utils.SearchTokens(sectionTitle, utils.Slugify(sectionTitle)),
	}
}

func (r *Repo) ListProviders(ctx context.Context, serviceID string) ([]Provider, error) {
	if serviceID == "" {
		return nil, fmt.Errorf("%w: serviceId is required", ErrBadRequest)
	}
	recs, err := r.remote.GetAll(ctx, ProvidersPath(serviceID))
	if err != nil {
		return nil, err
	}
	out := make([]Provider, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeProvider(rec))
	}
	return out, nil
}

func (r *Repo) GetProvider(ctx context.Context, serviceID, providerID string) (*Provider, error) {
	if serviceID == "" || providerID == "" {
		return nil, fmt.Errorf("%w: serviceId and providerId are required", ErrBadRequest)
	}
	rec, err := r.remote.GetDoc(ctx, ProvidersPath(serviceID)+"/"+providerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: provider %s", ErrNotFound, providerID)
	}
	if err != nil {
		return nil, err
	}
	p := decodeProvider(rec)
	return &p, nil
}

func decodeService(rec store.Record) Service {
	var s Service
	s.ID, _ = rec["id"].(string)
	s.SectionTitle, _ = rec["sectionTitle"].(string)
	s.Details, _ = rec["details"].(string)
	s.Status, _ = rec["status"].(string)
	s.Image = rec["image"]
	s.NameLower, _ = rec["nameLower"].(string)
	if kws, ok := rec["keywords"].([]any); ok {
		for _, kw := range kws {
			if w, ok := kw.(string); ok {
				s.Keywords = append(s.Keywords, w)
			}
		}
	}
	if t, ok := rec["createdAt"].(time.Time); ok {
		s.CreatedAt = t
	}
	if t, ok := rec["updatedAt"].(time.Time); ok {
		s.UpdatedAt = t
	}
	return s
}

func decodeProvider(rec store.Record) Provider {
	var p Provider
	p.ID, _ = rec["id"].(string)
	p.Name, _ = rec["Name"].(string)
	p.Contact, _ = rec["contact"].(string)
	p.Type, _ = rec["Type"].(string)
	p.Location, _ = rec["Location"].(string)
	p.Address, _ = rec["address"].(string)
	p.Pincode, _ = rec["pincode"].(string)
	p.Price, _ = rec["Price"].(string)
	p.PriceUnit, _ = rec["priceUnit"].(string)
	p.ProfileImg, _ = rec["profileimg"].(string)
	p.Description, _ = rec["description"].(string)
	switch v := rec["rating"].(type) {
	case float64:
		p.Rating = v
	case int64:
		p.Rating = float64(v)
	}
	if imgs, ok := rec["workImage"].([]any); ok {
		for _, img := range imgs {
			if s, ok := img.(string); ok {
				p.WorkImage = append(p.WorkImage, s)
			}
		}
	}
	return p
}
