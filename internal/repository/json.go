package repository

import (
	"encoding/json"

	"github.com/franpass87/fp-experiences/internal/model"
)

// Category quantities, category sets and reservation metadata are stored
// as JSON columns.  Empty values serialize as SQL NULL so the tables stay
// readable.

func marshalQuantities(q model.CategoryQuantities) (any, error) {
	if len(q) == 0 {
		return nil, nil
	}
	return json.Marshal(q)
}

func unmarshalQuantities(raw []byte) (model.CategoryQuantities, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var q model.CategoryQuantities
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	return q, nil
}

func marshalCategories(keys []model.CategoryKey) (any, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return json.Marshal(keys)
}

func unmarshalCategories(raw []byte) ([]model.CategoryKey, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var keys []model.CategoryKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func marshalMeta(meta model.ReservationMeta) (any, error) {
	if meta.Contact == nil && meta.Consent == nil && meta.Decision == nil {
		return nil, nil
	}
	return json.Marshal(meta)
}

func unmarshalMeta(raw []byte) (model.ReservationMeta, error) {
	if len(raw) == 0 {
		return model.ReservationMeta{}, nil
	}
	var meta model.ReservationMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return model.ReservationMeta{}, err
	}
	return meta, nil
}
