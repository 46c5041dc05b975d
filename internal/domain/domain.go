package domain

import (
	"slices"
	"time"
)

// MethodRef names a method on a service of the automation engine.
type MethodRef struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

type Action struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Method      MethodRef      `json:"method"`
	Args        map[string]any `json:"args"`
	CreatedDate time.Time      `json:"createdDate" format:"date-time"`
}

// Bound reports whether a method has been applied to the action.
func (a Action) Bound() bool {
	return a.Method.Service != "" && a.Method.Method != ""
}

// ApplyMethod binds the action to a method, keeping its args.
func (a Action) ApplyMethod(ref MethodRef) Action {
	a.Method = ref
	return a
}

// WithArgs replaces the argument bindings.
func (a Action) WithArgs(args map[string]any) Action {
	a.Args = cloneArgs(args)
	return a
}

func (a Action) Clone() Action {
	a.Args = cloneArgs(a.Args)
	return a
}

func cloneArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type Flow struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Owner            string    `json:"owner,omitempty"`
	Logo             string    `json:"logo,omitempty"`
	Active           bool      `json:"active"`
	Tags             []string  `json:"tags"`
	Triggers         []string  `json:"triggers"`
	Actions          []Action  `json:"actions"`
	CreatedDate      time.Time `json:"createdDate" format:"date-time"`
	LastModifiedDate time.Time `json:"lastModifiedDate" format:"date-time"`
}

// FlowTemplate carries the client-supplied fields of a new flow.
type FlowTemplate struct {
	ID          string
	Name        string
	Description string
	Owner       string
	Logo        string
	Active      bool
	Tags        []string
	Triggers    []string
}

// FlowUpdate is a partial update; nil fields are left untouched. A non-nil
// Tags or Triggers replaces the whole set.
type FlowUpdate struct {
	Name        *string
	Description *string
	Owner       *string
	Logo        *string
	Active      *bool
	Tags        *[]string
	Triggers    *[]string
}

// NewFlow builds an empty flow from a template.
func NewFlow(id string, tpl FlowTemplate, now time.Time) Flow {
	f := Flow{
		ID:               id,
		Name:             tpl.Name,
		Description:      tpl.Description,
		Owner:            tpl.Owner,
		Logo:             tpl.Logo,
		Active:           tpl.Active,
		Tags:             []string{},
		Triggers:         []string{},
		Actions:          []Action{},
		CreatedDate:      now,
		LastModifiedDate: now,
	}
	for _, t := range tpl.Tags {
		f.AddTag(t)
	}
	for _, t := range tpl.Triggers {
		f.AddTrigger(t)
	}
	return f
}

func (f *Flow) AddTag(tag string)        { f.Tags = addMember(f.Tags, tag) }
func (f *Flow) RemoveTag(tag string)     { f.Tags = removeMember(f.Tags, tag) }
func (f *Flow) AddTrigger(evt string)    { f.Triggers = addMember(f.Triggers, evt) }
func (f *Flow) RemoveTrigger(evt string) { f.Triggers = removeMember(f.Triggers, evt) }

// ReplaceTags removes every tag missing from tags, then adds the new ones.
func (f *Flow) ReplaceTags(tags []string) {
	for _, t := range slices.Clone(f.Tags) {
		if !slices.Contains(tags, t) {
			f.RemoveTag(t)
		}
	}
	for _, t := range tags {
		f.AddTag(t)
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
}

// ReplaceTriggers behaves like ReplaceTags for trigger bindings.
func (f *Flow) ReplaceTriggers(events []string) {
	for _, e := range slices.Clone(f.Triggers) {
		if !slices.Contains(events, e) {
			f.RemoveTrigger(e)
		}
	}
	for _, e := range events {
		f.AddTrigger(e)
	}
	if f.Triggers == nil {
		f.Triggers = []string{}
	}
}

// Apply writes the present fields of u onto the flow.
func (f *Flow) Apply(u FlowUpdate) {
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.Description != nil {
		f.Description = *u.Description
	}
	if u.Owner != nil {
		f.Owner = *u.Owner
	}
	if u.Logo != nil {
		f.Logo = *u.Logo
	}
	if u.Active != nil {
		f.Active = *u.Active
	}
	if u.Tags != nil {
		f.ReplaceTags(*u.Tags)
	}
	if u.Triggers != nil {
		f.ReplaceTriggers(*u.Triggers)
	}
}

// ActionIndex returns the position of the action id, or -1.
func (f *Flow) ActionIndex(id string) int {
	return slices.IndexFunc(f.Actions, func(a Action) bool { return a.ID == id })
}

func (f *Flow) GetAction(id string) (Action, bool) {
	i := f.ActionIndex(id)
	if i < 0 {
		return Action{}, false
	}
	return f.Actions[i].Clone(), true
}

func (f *Flow) AddAction(a Action) {
	f.Actions = append(f.Actions, a.Clone())
}

// MoveAction re-inserts the action at pos clamped to [0, len-1]. It returns
// the final index, or -1 when the action is not in the flow.
func (f *Flow) MoveAction(id string, pos int) int {
	i := f.ActionIndex(id)
	if i < 0 {
		return -1
	}
	pos = max(0, min(pos, len(f.Actions)-1))
	a := f.Actions[i]
	f.Actions = slices.Delete(f.Actions, i, i+1)
	f.Actions = slices.Insert(f.Actions, pos, a)
	return pos
}

// RemoveActionByID reports whether an action was removed.
func (f *Flow) RemoveActionByID(id string) bool {
	i := f.ActionIndex(id)
	if i < 0 {
		return false
	}
	f.Actions = slices.Delete(f.Actions, i, i+1)
	return true
}

// Clone returns a deep copy safe to hand out of a store.
func (f Flow) Clone() Flow {
	f.Tags = slices.Clone(f.Tags)
	f.Triggers = slices.Clone(f.Triggers)
	actions := make([]Action, len(f.Actions))
	for i, a := range f.Actions {
		actions[i] = a.Clone()
	}
	f.Actions = actions
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Triggers == nil {
		f.Triggers = []string{}
	}
	return f
}

func addMember(set []string, v string) []string {
	if slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}

func removeMember(set []string, v string) []string {
	i := slices.Index(set, v)
	if i < 0 {
		return set
	}
	return slices.Delete(set, i, i+1)
}

// Event is one entry of the flow change log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
