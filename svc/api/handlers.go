package api

import (
	"net/http"

	"github.com/dmitrymomot/sublife/svc/subscription"
)

func (a *api) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := a.bind(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.CreateSubscription(r.Context(), subscription.CreateParams{
		SubscriptionID: req.SubscriptionID,
		BundleID:       req.BundleID,
		Plan:           req.Plan,
		StartDate:      req.StartDate,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/subscriptions/"+res.SubscriptionID.String())
	respond(w, http.StatusCreated, res)
}

func (a *api) change(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req changeRequest
	if err := a.bind(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.ChangePlan(r.Context(), subscription.ChangeParams{
		SubscriptionID:  id,
		ExpectedVersion: req.ExpectedVersion,
		EffectiveDate:   req.EffectiveDate,
		Plan:            req.Plan,
	})
	a.mutated(w, r, res, err)
}

func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req cancelRequest
	if err := a.bind(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.Cancel(r.Context(), subscription.CancelParams{
		SubscriptionID:  id,
		ExpectedVersion: req.ExpectedVersion,
		EffectiveDate:   req.EffectiveDate,
	})
	a.mutated(w, r, res, err)
}

func (a *api) uncancel(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req uncancelRequest
	if err := a.bind(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.Uncancel(r.Context(), subscription.UncancelParams{
		SubscriptionID:  id,
		ExpectedVersion: req.ExpectedVersion,
		RequestedDate:   req.RequestedDate,
	})
	a.mutated(w, r, res, err)
}

func (a *api) reactivate(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req reactivateRequest
	if err := a.bind(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.Reactivate(r.Context(), subscription.ReactivateParams{
		SubscriptionID:  id,
		ExpectedVersion: req.ExpectedVersion,
		EffectiveDate:   req.EffectiveDate,
		Plan:            req.Plan,
	})
	a.mutated(w, r, res, err)
}

func (a *api) mutated(w http.ResponseWriter, r *http.Request, res subscription.MutationResult, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (a *api) state(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	at, err := asOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	st, err := a.svc.GetSubscriptionState(r.Context(), id, at)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (a *api) events(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	events, err := a.svc.GetEvents(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, eventsResponse{SubscriptionID: id, Events: events})
}

func (a *api) pending(w http.ResponseWriter, r *http.Request) {
	id, err := subscriptionID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	at, err := asOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	events, err := a.svc.GetPendingEvents(r.Context(), id, at)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, eventsResponse{SubscriptionID: id, Events: events})
}
