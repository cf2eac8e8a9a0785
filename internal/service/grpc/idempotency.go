package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// IdempotencyKeyHeader: metadata с ключом идемпотентности коммерческих вызовов.
	IdempotencyKeyHeader = "idempotency-key"

	replayedFailureMessage = "previous request with the same idempotency key failed"
)

var errNilRequest = errors.New("request is nil")

// storedFailure: тело failed-записи, из которого повтор восстанавливает gRPC-статус.
type storedFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// idempotentCall: коммерческий вызов, занявший ключ в статусе processing.
type idempotentCall struct {
	repo   domain.IdempotencyRepository
	logger *log.Entry
	key    string
}

// idempotent выполняет транзакцию не больше одного раза на ключ. Повтор с тем же
// телом получает сохранённый ответ или окончательный отказ. После временного
// отказа ключ освобождается, и повтор запускает транзакцию заново.
func (s *CommerceService) idempotent(
	ctx context.Context,
	method string,
	req *OrderRequest,
	run func(context.Context) (*TransactionResponse, error),
) (*TransactionResponse, error) {
	if s.idemRepo == nil {
		return run(ctx)
	}

	call, replay, err := s.claimIdempotencyKey(ctx, method, req)
	if err != nil || replay != nil {
		return replay, err
	}

	resp, runErr := run(ctx)
	if runErr != nil {
		call.fail(runErr)
		return nil, runErr
	}
	call.complete(resp)
	return resp, nil
}

// claimIdempotencyKey занимает ключ. Если ключ уже занят, возвращает сохранённый
// ответ или ошибку, которую надо отдать клиенту.
func (s *CommerceService) claimIdempotencyKey(ctx context.Context, method string, req *OrderRequest) (idempotentCall, *TransactionResponse, error) {
	key, err := readIdempotencyKey(ctx)
	if err != nil {
		return idempotentCall{}, nil, err
	}
	logger := s.logger.WithFields(log.Fields{"idempotency_key": key, "method": method})

	fingerprint, err := requestFingerprint(method, req)
	if err != nil {
		logger.WithError(err).Warn("failed to fingerprint idempotent request")
		return idempotentCall{}, nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	record, err := s.idemRepo.CreateProcessing(key, fingerprint, s.now().Add(s.idempotencyTTL))
	switch {
	case err == nil:
		return idempotentCall{repo: s.idemRepo, logger: logger, key: key}, nil, nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return idempotentCall{}, nil, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		resp, replayErr := replayRecord(record)
		if replayErr != nil && status.Code(replayErr) == codes.Internal {
			logger.WithError(replayErr).Warn("failed to replay idempotent response")
		}
		return idempotentCall{}, resp, replayErr
	default:
		logger.WithError(err).Warn("failed to create idempotency record")
		return idempotentCall{}, nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}
}

func replayRecord(record domain.IdempotencyRecord) (*TransactionResponse, error) {
	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		return nil, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
	case domain.IdempotencyStatusFailed:
		return nil, restoreFailure(record)
	case domain.IdempotencyStatusDone:
		if len(record.ResponseBody) == 0 {
			return nil, status.Error(codes.Internal, "idempotency cache is empty")
		}
		var resp TransactionResponse
		if err := json.Unmarshal(record.ResponseBody, &resp); err != nil {
			return nil, status.Errorf(codes.Internal, "failed to decode cached idempotency response: %v", err)
		}
		return &resp, nil
	default:
		return nil, status.Error(codes.Internal, "unknown idempotency record status")
	}
}

func (c idempotentCall) complete(resp *TransactionResponse) {
	body, err := json.Marshal(resp)
	if err == nil {
		err = c.repo.MarkDone(c.key, body, int(codes.OK))
	}
	if err != nil {
		c.logger.WithError(err).Warn("failed to store idempotent success response")
	}
}

// fail сохраняет окончательный отказ. Временный отказ освобождает ключ.
func (c idempotentCall) fail(runErr error) {
	st := status.Convert(runErr)
	if transientCode(st.Code()) {
		if err := c.repo.Release(c.key); err != nil {
			c.logger.WithError(err).Warn("failed to release idempotency key after transient failure")
			return
		}
		c.logger.WithField("grpc_code", st.Code().String()).Debug("idempotency key released after transient failure")
		return
	}

	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}
	body, err := json.Marshal(storedFailure{Code: int(code), Message: st.Message()})
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode idempotency failure payload")
	}
	if err := c.repo.MarkFailed(c.key, body, int(code)); err != nil {
		c.logger.WithError(err).Warn("failed to store idempotency failure response")
	}
}

// transientCode: отказы, после которых транзакция скомпенсирована и
// повтор того же запроса может пройти.
func transientCode(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func restoreFailure(record domain.IdempotencyRecord) error {
	var stored storedFailure
	if err := json.Unmarshal(record.ResponseBody, &stored); err == nil && knownCode(stored.Code) {
		if stored.Message == "" {
			stored.Message = replayedFailureMessage
		}
		return status.Error(codes.Code(uint32(stored.Code)), stored.Message) //nolint:gosec // range checked by knownCode.
	}
	if knownCode(record.StatusCode) {
		return status.Error(codes.Code(uint32(record.StatusCode)), replayedFailureMessage) //nolint:gosec // range checked by knownCode.
	}
	return status.Error(codes.Internal, replayedFailureMessage)
}

// knownCode: ненулевой код из перечня gRPC.
func knownCode(value int) bool {
	return value > int(codes.OK) && value <= int(codes.Unauthenticated)
}

func readIdempotencyKey(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, value := range md.Get(IdempotencyKeyHeader) {
		if key := strings.TrimSpace(value); key != "" {
			return key, nil
		}
	}
	return "", status.Error(codes.InvalidArgument, "idempotency-key metadata is required")
}

// requestFingerprint: sha256 от имени метода и JSON тела запроса.
func requestFingerprint(method string, req *OrderRequest) (string, error) {
	if req == nil {
		return "", errNilRequest
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
