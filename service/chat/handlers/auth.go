package handlers

import (
	"context"
	"time"

	"PPRelay/global"
	"PPRelay/service/chat"
	"PPRelay/service/directory"
	"PPRelay/tools/errs"
	"PPRelay/tools/security"

	"go.uber.org/zap"
)

const directoryTimeout = 3 * time.Second

type AuthConfig struct {
	Mode      string // global.AuthSelfAsserted | global.AuthToken
	JWT       security.Options
	Directory directory.UserDirectory // 可为 nil；仅 token 模式使用
}

type AuthHandler struct {
	cfg AuthConfig
	log *zap.Logger
}

func NewAuthHandler(cfg AuthConfig, log *zap.Logger) *AuthHandler {
	if cfg.Mode == "" {
		cfg.Mode = global.AuthSelfAsserted
	}
	return &AuthHandler{cfg: cfg, log: log}
}

func (h *AuthHandler) Type() chat.FrameType { return chat.TypeAuthenticate }

func (h *AuthHandler) Handle(ctx *chat.Context, f chat.InboundFrame, conn *chat.WsConn) error {
	a, ok := f.(chat.Authenticate)
	if !ok {
		return errs.ErrInvalidFormat.WrapMsg("unexpected frame", "type", string(f.Type()))
	}
	user, err := h.resolve(ctx.Ctx, a, conn)
	if err != nil {
		h.log.Info("authenticate rejected", zap.String("conn", conn.SnowID), zap.Error(err))
		return err
	}

	b, err := ctx.S.Login(conn, user)
	if err != nil {
		return err
	}
	if b.Replaced != nil {
		// 旧连接保持打开，只是不再能通过 user 找到
		h.log.Info("user rebound to new conn", zap.String("user", user),
			zap.String("conn", conn.SnowID), zap.String("replaced", b.Replaced.SnowID))
	}
	if b.PrevUser != "" {
		h.log.Info("conn rebound to new user", zap.String("conn", conn.SnowID),
			zap.String("prev", b.PrevUser), zap.String("user", user))
	}
	return nil
}

func (h *AuthHandler) resolve(ctx context.Context, a chat.Authenticate, conn *chat.WsConn) (string, error) {
	if h.cfg.Mode != global.AuthToken {
		if a.UserID == "" {
			return "", errs.ErrUserIDRequired.Wrap()
		}
		return a.UserID, nil
	}

	token := a.Token
	if token == "" {
		token = conn.Token
	}
	if token == "" {
		return "", errs.ErrTokenRequired.Wrap()
	}
	user, err := security.Verify(h.cfg.JWT, token)
	if err != nil {
		h.log.Debug("token rejected", zap.String("token", security.HashToken(token)), zap.Error(err))
		return "", err
	}
	if a.UserID != "" && a.UserID != user {
		return "", errs.ErrTokenInvalid.WrapMsg("user_id does not match token", "user_id", a.UserID)
	}
	if h.cfg.Directory != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		lctx, cancel := context.WithTimeout(ctx, directoryTimeout)
		defer cancel()
		if _, err := h.cfg.Directory.GetUserByID(lctx, user); err != nil {
			if errs.Code(err) == errs.AuthFailed {
				return "", err
			}
			return "", errs.ErrAuthFailed.WrapMsg(err.Error())
		}
	}
	return user, nil
}
