package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"WeaveSync/internal/collection"
	"WeaveSync/internal/model"
	"WeaveSync/internal/repo"
	"WeaveSync/internal/wbo"
	"WeaveSync/internal/weave"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GuardMode - как трактовать X-If-Unmodified-Since.
type GuardMode string

const (
	// GuardLegacy отказывает, когда коллекция НЕ менялась после заголовка (max <= header).
	GuardLegacy GuardMode = "legacy"
	// GuardStrict отказывает, когда коллекция менялась после заголовка (max > header).
	GuardStrict GuardMode = "strict"
)

// Форматы выдачи списков.
const (
	ContentTypeWhoisi   = "application/whoisi"
	ContentTypeNewlines = "application/newlines"
)

// SyncService - диспетчер протокола Weave: проверенный запрос на входе, готовый ответ на выходе.
// Между запросами состояния не держит.
type SyncService struct {
	store  repo.Storage
	users  *UserService
	logger *zap.SugaredLogger
	guard  GuardMode
	now    func() time.Time
}

// SyncOption настраивает SyncService.
type SyncOption func(*SyncService)

func WithGuardMode(mode GuardMode) SyncOption {
	return func(s *SyncService) {
		if mode == GuardStrict {
			s.guard = GuardStrict
		}
	}
}

func WithNow(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

func NewSyncService(store repo.Storage, users *UserService, logger *zap.SugaredLogger, opts ...SyncOption) *SyncService {
	s := &SyncService{
		store:  store,
		users:  users,
		logger: logger,
		guard:  GuardLegacy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle аутентифицирует пользователя и выполняет запрос.
// Ошибки не возвращаются: любой исход превращается в ответ протокола.
func (s *SyncService) Handle(ctx context.Context, req *weave.Request) *weave.Response {
	ts := wbo.Timestamp(s.now())

	user, err := s.users.Authenticate(ctx, req.AuthUser, req.AuthPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warnw("authentication failed", "user", req.UserName)
			return weave.ErrorResponse(weave.ErrUnauthorized, ts)
		}
		return s.fail(req, err, ts)
	}

	resp, err := s.dispatch(ctx, req, user.ID, ts)
	if err != nil {
		return s.fail(req, err, ts)
	}
	return resp
}

// fail: ошибки протокола уходят клиенту как есть, всё остальное - 503 без подробностей.
func (s *SyncService) fail(req *weave.Request, err error, ts float64) *weave.Response {
	var we *weave.Error
	if errors.As(err, &we) {
		s.logger.Debugw("request rejected",
			"method", req.Method,
			"function", req.Function,
			"collection", req.Collection,
			"code", we.Code,
			"status", we.Status,
			"reason", we.Message,
		)
		return weave.ErrorResponse(we, ts)
	}
	s.logger.Errorw("storage failure",
		"method", req.Method,
		"function", req.Function,
		"collection", req.Collection,
		"error", err,
	)
	return weave.ErrorResponse(weave.ErrUnavailable, ts)
}

func (s *SyncService) dispatch(ctx context.Context, req *weave.Request, userID int64, ts float64) (*weave.Response, error) {
	switch req.Function {
	case weave.FunctionInfo:
		if req.Method == http.MethodGet {
			return s.info(ctx, userID, req.Collection, ts)
		}
	case weave.FunctionPassword:
		if req.Method == http.MethodPost {
			return s.changePassword(ctx, userID, req, ts)
		}
	case weave.FunctionStorage:
		code := collection.NameToCode(req.Collection)
		if code == collection.None {
			return nil, weave.NewError(weave.CodeInvalidCollection, "unknown collection "+req.Collection)
		}
		switch req.Method {
		case http.MethodGet:
			if req.ID != "" {
				return s.getOne(ctx, userID, code, req.ID, ts)
			}
			return s.getList(ctx, userID, code, req, ts)
		case http.MethodPut:
			return s.put(ctx, userID, code, req, ts)
		case http.MethodPost:
			if req.ID == "" {
				return s.postBatch(ctx, userID, code, req, ts)
			}
		case http.MethodDelete:
			return s.delete(ctx, userID, code, req, ts)
		}
	}
	return nil, weave.NewError(weave.CodeInvalidProtocol, "unsupported "+req.Method+" "+string(req.Function))
}

func (s *SyncService) info(ctx context.Context, userID int64, kind string, ts float64) (*weave.Response, error) {
	switch kind {
	case "quota":
		kb, err := s.store.StorageTotalKB(ctx, userID)
		if err != nil {
			return nil, err
		}
		return weave.JSONResponse(ts, []any{kb, nil})

	case "collections":
		rows, err := s.store.CollectionTimestamps(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]json.Number, len(rows))
		for _, r := range rows {
			if name := collection.CodeToName(r.Collection); name != "" {
				out[name] = json.Number(wbo.FormatTimestamp(r.Modified))
			}
		}
		return weave.JSONResponse(ts, out)

	case "collection_counts":
		rows, err := s.store.CollectionCounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(rows))
		for _, r := range rows {
			if name := collection.CodeToName(r.Collection); name != "" {
				out[name] = r.Count
			}
		}
		return weave.JSONResponse(ts, out)

	case "collection_usage":
		rows, err := s.store.CollectionUsage(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]float64, len(rows))
		for _, r := range rows {
			if name := collection.CodeToName(r.Collection); name != "" {
				out[name] = float64(r.Bytes) / 1024
			}
		}
		return weave.JSONResponse(ts, out)
	}
	return nil, weave.ErrNotFound
}

func (s *SyncService) getOne(ctx context.Context, userID int64, code int, id string, ts float64) (*weave.Response, error) {
	w, err := s.store.GetWbo(ctx, userID, code, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, weave.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return weave.JSONResponse(ts, wbo.FromModel(*w, true))
}

func (s *SyncService) getList(ctx context.Context, userID int64, code int, req *weave.Request, ts float64) (*weave.Response, error) {
	f, werr := parseFilter(req)
	if werr != nil {
		return nil, werr
	}
	rows, err := s.store.GetWboList(ctx, userID, code, f)
	if err != nil {
		return nil, err
	}

	entries := make([]any, 0, len(rows))
	for _, w := range rows {
		if f.Full {
			entries = append(entries, wbo.FromModel(w, true))
		} else {
			entries = append(entries, w.ID)
		}
	}

	resp := weave.NewResponse(http.StatusOK, ts)
	if len(entries) > 0 {
		resp.Header.Set(weave.HeaderRecords, strconv.Itoa(len(entries)))
	}

	switch {
	case strings.Contains(req.Accept, ContentTypeWhoisi):
		var buf bytes.Buffer
		for _, e := range entries {
			b, err := json.Marshal(e)
			if err != nil {
				return nil, err
			}
			_ = binary.Write(&buf, binary.BigEndian, uint32(len(b)))
			buf.Write(b)
		}
		resp.Header.Set("Content-Type", ContentTypeWhoisi)
		resp.Body = buf.Bytes()

	case strings.Contains(req.Accept, ContentTypeNewlines):
		var buf bytes.Buffer
		for _, e := range entries {
			b, err := json.Marshal(e)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
			buf.WriteByte('\n')
		}
		resp.Header.Set("Content-Type", ContentTypeNewlines)
		resp.Body = buf.Bytes()

	default:
		b, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		resp.Header.Set("Content-Type", "application/json")
		resp.Body = b
	}
	return resp, nil
}

// checkGuard - оптимистическая проверка X-If-Unmodified-Since перед записью.
// Между проверкой и записью блокировки нет.
func (s *SyncService) checkGuard(ctx context.Context, userID int64, code int, req *weave.Request) error {
	if req.IfUnmodifiedSince == nil {
		return nil
	}
	latest, err := s.store.MaxTimestamp(ctx, userID, code)
	if err != nil {
		return err
	}
	header := *req.IfUnmodifiedSince

	reject := latest <= header
	if s.guard == GuardStrict {
		reject = latest > header
	}
	if reject {
		return weave.NewError(weave.CodeNoOverwrite, "collection modified at "+wbo.FormatTimestamp(latest))
	}
	return nil
}

func (s *SyncService) put(ctx context.Context, userID int64, code int, req *weave.Request, ts float64) (*weave.Response, error) {
	if err := s.checkGuard(ctx, userID, code, req); err != nil {
		return nil, err
	}

	var rec wbo.Record
	if err := rec.PopulateJSON(req.Body); err != nil {
		if errors.Is(err, wbo.ErrNotObject) {
			return nil, weave.NewError(weave.CodeJSONParse, err.Error())
		}
		return nil, weave.NewError(weave.CodeInvalidWbo, err.Error())
	}
	switch {
	case rec.ID == nil && req.ID != "":
		id := req.ID
		rec.ID = &id
	case rec.ID != nil && req.ID != "" && *rec.ID != req.ID:
		return nil, weave.NewError(weave.CodeInvalidWbo, "id does not match path")
	}
	rec.Modified = &ts

	if vs := rec.Validate(); len(vs) > 0 {
		err := wbo.Combine(vs)
		s.logger.Infow("invalid wbo", "user_id", userID, "collection", req.Collection, "violations", len(multierr.Errors(err)), "error", err)
		return nil, weave.NewError(weave.CodeInvalidWbo, err.Error())
	}

	w := rec.ToModel(userID, code)
	if err := s.store.UpsertWbo(ctx, &w); err != nil {
		return nil, err
	}
	return weave.TimestampResponse(ts, ts), nil
}

func (s *SyncService) postBatch(ctx context.Context, userID int64, code int, req *weave.Request, ts float64) (*weave.Response, error) {
	if err := s.checkGuard(ctx, userID, code, req); err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(req.Body, &items); err != nil || items == nil {
		return nil, weave.NewError(weave.CodeJSONParse, "json array expected")
	}

	result := wbo.NewBatchResult(ts)
	valid := make([]wbo.Record, 0, len(items))
	for _, raw := range items {
		var rec wbo.Record
		err := rec.PopulateJSON(raw)
		id := ""
		if rec.ID != nil {
			id = *rec.ID
		}
		if err != nil {
			reasons := make([]string, 0)
			for _, e := range multierr.Errors(err) {
				reasons = append(reasons, e.Error())
			}
			result.AddFailure(id, reasons...)
			continue
		}
		rec.Modified = &ts
		if vs := rec.Validate(); len(vs) > 0 {
			result.AddFailure(id, wbo.Reasons(vs)...)
			continue
		}
		valid = append(valid, rec)
	}

	if len(valid) > 0 {
		rows := make([]model.Wbo, 0, len(valid))
		for i := range valid {
			rows = append(rows, valid[i].ToModel(userID, code))
		}
		outcome, err := s.store.UpsertWboBatch(ctx, userID, rows)
		if err != nil {
			return nil, err
		}
		for _, id := range outcome.Succeeded {
			result.AddSuccess(id)
		}
		for id, err := range outcome.Failed {
			s.logger.Warnw("batch item not stored", "user_id", userID, "collection", req.Collection, "id", id, "error", err)
			result.AddFailure(id, "record could not be stored")
		}
	}
	return weave.JSONResponse(ts, result)
}

func (s *SyncService) delete(ctx context.Context, userID int64, code int, req *weave.Request, ts float64) (*weave.Response, error) {
	if err := s.checkGuard(ctx, userID, code, req); err != nil {
		return nil, err
	}

	if req.ID != "" {
		if _, err := s.store.DeleteWbo(ctx, userID, code, req.ID); err != nil {
			return nil, err
		}
		return weave.TimestampResponse(ts, ts), nil
	}

	f, werr := parseFilter(req)
	if werr != nil {
		return nil, werr
	}
	if f.IsEmpty() && !req.ConfirmDelete {
		return nil, weave.NewError(weave.CodeNoOverwrite, "unfiltered delete without "+weave.HeaderConfirmDelete)
	}
	n, err := s.store.DeleteWboList(ctx, userID, code, f)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("wbos deleted", "user_id", userID, "collection", req.Collection, "count", n)
	return weave.TimestampResponse(ts, ts), nil
}

func (s *SyncService) changePassword(ctx context.Context, userID int64, req *weave.Request, ts float64) (*weave.Response, error) {
	err := s.users.ChangePassword(ctx, userID, string(req.Body))
	switch {
	case errors.Is(err, ErrWeakPassword):
		return nil, weave.NewError(weave.CodeWeakPassword, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return nil, weave.ErrNotFound
	case err != nil:
		return nil, err
	}
	s.logger.Infow("password changed", "user_id", userID)
	return weave.JSONResponse(ts, "success")
}

// Cleanup применяет политику хранения; вызывается из админки и CLI.
func (s *SyncService) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	n, err := s.store.Cleanup(ctx, retentionDays)
	if err != nil {
		return 0, err
	}
	s.logger.Infow("retention cleanup", "days", retentionDays, "deleted", n)
	return n, nil
}

// parseFilter разбирает параметры выборки списка.
func parseFilter(req *weave.Request) (repo.WboFilter, *weave.Error) {
	q := req.Query
	var f repo.WboFilter
	bad := func(name string) *weave.Error {
		return weave.NewError(weave.CodeInvalidProtocol, "invalid "+name)
	}

	f.ID = q.Get("id")
	if v := q.Get("ids"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.IDs = append(f.IDs, id)
			}
		}
	}
	for name, dst := range map[string]**float64{"newer": &f.Newer, "older": &f.Older} {
		if v := q.Get(name); v != "" {
			ts, err := wbo.ParseTimestamp(v)
			if err != nil {
				return f, bad(name)
			}
			*dst = &ts
		}
	}
	for name, dst := range map[string]**int64{"index_above": &f.IndexAbove, "index_below": &f.IndexBelow} {
		if v := q.Get(name); v != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return f, bad(name)
			}
			*dst = &n
		}
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return f, bad(name)
			}
			*dst = n
		}
	}
	switch sort := repo.Sort(q.Get("sort")); sort {
	case repo.SortNone, repo.SortIndex, repo.SortNewest, repo.SortOldest:
		f.Sort = sort
	default:
		return f, bad("sort")
	}
	full := q.Get("full")
	f.Full = full != "" && full != "0"
	return f, nil
}
