package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"discovery-client/internal/entity"
	"discovery-client/internal/model"
	"discovery-client/internal/repository/contract"
)

type SearchParametersRepositoryImpl struct {
	kv contract.KeyValueRepository
}

func NewSearchParametersRepository(kv contract.KeyValueRepository) contract.SearchParametersRepository {
	return &SearchParametersRepositoryImpl{kv: kv}
}

func (r *SearchParametersRepositoryImpl) LoadOverride(ctx context.Context) (entity.SearchParametersOverride, error) {
	var override entity.SearchParametersOverride

	raw, found, err := r.kv.Get(ctx, model.KeySearchOverride)
	if err != nil || !found {
		return override, err
	}
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		return entity.SearchParametersOverride{}, fmt.Errorf("corrupt search override: %w", err)
	}
	return override, nil
}

func (r *SearchParametersRepositoryImpl) SaveOverride(ctx context.Context, override entity.SearchParametersOverride) error {
	data, err := json.Marshal(override)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, model.KeySearchOverride, string(data))
}
