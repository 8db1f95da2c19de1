package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guild-registration-bot/internal/domain"
	"guild-registration-bot/internal/domain/model"
)

type questionView struct {
	Number  int      `json:"number"`
	Prompt  string   `json:"prompt"`
	Kind    string   `json:"kind"`
	Action  string   `json:"action"`
	Options []string `json:"options,omitempty"`
}

type registrationView struct {
	GuildID               string         `json:"guild_id"`
	RegistrationChannelID string         `json:"registration_channel_id"`
	ManagementChannelID   string         `json:"management_channel_id"`
	Mode                  string         `json:"mode"`
	ManagerRoleIDs        []string       `json:"manager_role_ids"`
	Questions             []questionView `json:"questions"`
}

func (s *Server) registrationGetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	cfg, err := s.configs.Load(ctx, guildID)
	if err != nil {
		if errors.Is(err, domain.ErrConfigMissing) {
			http.NotFound(w, r)
			return
		}
		s.log.Error().Err(err).Str("guild_id", guildID).Msg("registration view failed")
		http.Error(w, "Failed to load registration record", http.StatusInternalServerError)
		return
	}

	view := registrationView{
		GuildID:               guildID,
		RegistrationChannelID: cfg.RegistrationChannelID,
		ManagementChannelID:   cfg.ManagementChannelID,
		Mode:                  string(cfg.Mode),
		ManagerRoleIDs:        cfg.ManagerRoleIDs,
		Questions:             make([]questionView, 0, len(cfg.Questions)),
	}
	for i, q := range cfg.Questions {
		qv := questionView{
			Number: i + 1,
			Prompt: q.Prompt,
			Kind:   string(q.Kind),
			Action: string(q.Action),
		}
		if q.Kind == model.KindOption {
			qv.Options = q.OptionLabels()
		}
		view.Questions = append(view.Questions, qv)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(view)
}

func (s *Server) adminRolesGetHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	roleIDs, err := s.adminRoles.Read(ctx, guildID)
	if err != nil {
		s.log.Error().Err(err).Str("guild_id", guildID).Msg("admin-role view failed")
		http.Error(w, "Failed to read admin roles", http.StatusInternalServerError)
		return
	}
	if roleIDs == nil {
		roleIDs = []string{}
	}

	response := struct {
		GuildID string   `json:"guild_id"`
		RoleIDs []string `json:"role_ids"`
	}{GuildID: guildID, RoleIDs: roleIDs}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
