package handler

import (
	"net/http"
	"strconv"

	"rota/internal/schedule"

	"github.com/go-chi/chi/v5"
)

type WeekHandler struct {
	Store schedule.Store
}

type activityDTO struct {
	ID          uint64   `json:"id"`
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Period      string   `json:"period"`
	OrderIndex  int      `json:"orderIndex"`
	Labels      []string `json:"labels"`
}

type dayDTO struct {
	ID        uint64        `json:"id"`
	DayName   string        `json:"dayName"`
	Morning   []activityDTO `json:"morning"`
	Afternoon []activityDTO `json:"afternoon"`
	Evening   []activityDTO `json:"evening"`
}

type weekDTO struct {
	ID         uint64   `json:"id"`
	WeekNumber int      `json:"weekNumber"`
	Days       []dayDTO `json:"days"`
}

func (h *WeekHandler) List(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.Store.ListWeeks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	type item struct {
		ID         uint64 `json:"id"`
		WeekNumber int    `json:"weekNumber"`
	}
	out := make([]item, 0, len(weeks))
	for _, wk := range weeks {
		out = append(out, item{ID: wk.ID, WeekNumber: wk.WeekNumber})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get renders one week with its days materialized as period buckets.
// Activities arrive from the store ordered (time, order_index, id), so each
// bucket keeps that order.
func (h *WeekHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "invalid week number", http.StatusBadRequest)
		return
	}
	week, err := h.Store.WeekByNumber(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}

	out := weekDTO{ID: week.ID, WeekNumber: week.WeekNumber}
	for _, name := range schedule.DayNames {
		day, err := h.Store.DayInWeek(r.Context(), week.WeekNumber, name)
		if err != nil {
			writeError(w, err)
			return
		}
		d := dayDTO{
			ID:        day.ID,
			DayName:   day.DayName,
			Morning:   []activityDTO{},
			Afternoon: []activityDTO{},
			Evening:   []activityDTO{},
		}
		acts, err := h.Store.ActivitiesForDay(r.Context(), day.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, a := range acts {
			dto := activityDTO{
				ID:          a.ID,
				Time:        a.Time,
				Description: a.Description,
				Period:      string(a.Period),
				OrderIndex:  a.OrderIndex,
				Labels:      []string(a.Labels),
			}
			if dto.Labels == nil {
				dto.Labels = []string{}
			}
			switch a.Period {
			case schedule.PeriodMorning:
				d.Morning = append(d.Morning, dto)
			case schedule.PeriodAfternoon:
				d.Afternoon = append(d.Afternoon, dto)
			case schedule.PeriodEvening:
				d.Evening = append(d.Evening, dto)
			}
		}
		out.Days = append(out.Days, d)
	}
	writeJSON(w, http.StatusOK, out)
}
