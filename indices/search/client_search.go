package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"hirehall/client/es"
	"hirehall/indices"
	"hirehall/session"
)

var (
	SearchClientsFunc = SearchClients
)

type ClientSearchQuery struct {
	Name             string `json:"name" form:"name"`
	Phone            string `json:"phone" form:"phone"`
	Status           string `json:"status" form:"status" binding:"omitempty,oneof=pending active completed inactive"`
	Neighborhood     string `json:"neighborhood" form:"neighborhood"`
	TrainingInterest string `json:"trainingInterest" form:"trainingInterest"`
}

func SearchClients(q ClientSearchQuery, s *session.Session) ([]indices.ClientDocument, error) {
	/*
		{
			"query": {
				"bool": {
					"filter": [
						{"match": {"fullName": {"query": "xxx", "operator": "AND"}}},
						{"term": {"status": "active"}}
					]
				}
			},
			"size": 10000,
			"sort": [{"createTime": {"order": "desc"}}]
		}
	*/
	filters := make([]es.H, 0, 5)
	if q.Name != "" {
		filters = append(filters, es.H{"match": es.H{"fullName": es.H{"query": q.Name, "operator": "AND"}}})
	}
	if q.Phone != "" {
		filters = append(filters, es.H{"term": es.H{"phone": q.Phone}})
	}
	if q.Status != "" {
		filters = append(filters, es.H{"term": es.H{"status": q.Status}})
	}
	if q.Neighborhood != "" {
		filters = append(filters, es.H{"term": es.H{"neighborhood": q.Neighborhood}})
	}
	if q.TrainingInterest != "" {
		filters = append(filters, es.H{"term": es.H{"trainingInterest": q.TrainingInterest}})
	}

	sorts := make([]es.H, 0, 1)
	sorts = append(sorts, es.H{"createTime": es.H{"order": "desc"}})

	root := es.H{"bool": es.H{"filter": filters}}
	r, err := es.SearchFunc(indices.ClientIndexName, es.H{"size": 10000, "query": root, "sort": sorts}, s.Context)
	if err != nil {
		return nil, err
	}

	docs := make([]indices.ClientDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := indices.ClientDocument{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&doc); err != nil {
			return nil, fmt.Errorf(string(hit.Source))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
