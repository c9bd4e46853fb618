package api

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"lolsync/internal/domain"
	"lolsync/internal/validation"
)

type AccountDTO struct {
	Puuid    string `json:"puuid" validate:"required"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type MatchDTO struct {
	Metadata MatchMetadataDTO `json:"metadata"`
	Info     MatchInfoDTO     `json:"info"`
}

type MatchMetadataDTO struct {
	DataVersion  string   `json:"dataVersion"`
	MatchID      string   `json:"matchId" validate:"required"`
	Participants []string `json:"participants"`
}

type MatchInfoDTO struct {
	GameCreation int64            `json:"gameCreation" validate:"gt=0"`
	GameDuration int              `json:"gameDuration" validate:"gte=0"`
	QueueID      int              `json:"queueId"`
	PlatformID   string           `json:"platformId"`
	Participants []ParticipantDTO `json:"participants" validate:"min=1,unique=Puuid,dive"`
}

type ParticipantDTO struct {
	Puuid                       string   `json:"puuid" validate:"required"`
	SummonerName                string   `json:"summonerName"`
	RiotIDGameName              string   `json:"riotIdGameName"`
	TeamID                      int      `json:"teamId"`
	ChampionID                  int      `json:"championId"`
	ChampionName                string   `json:"championName"`
	Role                        string   `json:"role"`
	Lane                        string   `json:"lane"`
	Kills                       int      `json:"kills" validate:"gte=0"`
	Deaths                      int      `json:"deaths" validate:"gte=0"`
	Assists                     int      `json:"assists" validate:"gte=0"`
	Win                         bool     `json:"win"`
	GoldEarned                  int      `json:"goldEarned" validate:"gte=0"`
	TotalMinionsKilled          int      `json:"totalMinionsKilled" validate:"gte=0"`
	NeutralMinionsKilled        int      `json:"neutralMinionsKilled" validate:"gte=0"`
	TotalDamageDealtToChampions int      `json:"totalDamageDealtToChampions" validate:"gte=0"`
	Item0                       *int     `json:"item0"`
	Item1                       *int     `json:"item1"`
	Item2                       *int     `json:"item2"`
	Item3                       *int     `json:"item3"`
	Item4                       *int     `json:"item4"`
	Item5                       *int     `json:"item5"`
	Item6                       *int     `json:"item6"`
	Summoner1ID                 *int     `json:"summoner1Id"`
	Summoner2ID                 *int     `json:"summoner2Id"`
	Perks                       PerksDTO `json:"perks"`
}

type PerksDTO struct {
	Styles []struct {
		Style int `json:"style"`
	} `json:"styles"`
}

type TimelineDTO struct {
	Metadata struct {
		DataVersion string `json:"dataVersion"`
		MatchID     string `json:"matchId" validate:"required"`
	} `json:"metadata"`
	Info struct {
		FrameInterval int               `json:"frameInterval" validate:"gte=0"`
		Frames        []json.RawMessage `json:"frames"`
	} `json:"info"`
}

// DecodeMatch turns a Match-V5 payload into a bundle. The payload must
// validate and must describe wantID.
func DecodeMatch(body []byte, wantID string) (domain.MatchBundle, error) {
	var dto MatchDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return domain.MatchBundle{}, fmt.Errorf("%w: decoding match %s: %v", domain.ErrMalformedRecord, wantID, err)
	}
	if err := validation.Struct(&dto); err != nil {
		return domain.MatchBundle{}, fmt.Errorf("%w: match %s: %v", domain.ErrMalformedRecord, wantID, err)
	}
	if dto.Metadata.MatchID != wantID {
		return domain.MatchBundle{}, fmt.Errorf("%w: asked for %s, got %s", domain.ErrMalformedRecord, wantID, dto.Metadata.MatchID)
	}

	created := time.UnixMilli(dto.Info.GameCreation).UTC()
	bundle := domain.MatchBundle{
		Match: domain.Match{
			MatchID:      dto.Metadata.MatchID,
			DataVersion:  dto.Metadata.DataVersion,
			GameCreation: created,
			GameDuration: dto.Info.GameDuration,
			QueueID:      dto.Info.QueueID,
			Platform:     dto.Info.PlatformID,
			Year:         created.Year(),
			Raw:          body,
		},
		Participants: make([]domain.Participant, 0, len(dto.Info.Participants)),
	}
	for _, p := range dto.Info.Participants {
		bundle.Participants = append(bundle.Participants, p.toDomain(dto.Metadata.MatchID))
	}
	return bundle, nil
}

func DecodeTimeline(body []byte, wantID string) (domain.Timeline, error) {
	var dto TimelineDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return domain.Timeline{}, fmt.Errorf("%w: decoding timeline %s: %v", domain.ErrMalformedRecord, wantID, err)
	}
	if err := validation.Struct(&dto); err != nil {
		return domain.Timeline{}, fmt.Errorf("%w: timeline %s: %v", domain.ErrMalformedRecord, wantID, err)
	}
	if dto.Metadata.MatchID != wantID {
		return domain.Timeline{}, fmt.Errorf("%w: asked for timeline %s, got %s", domain.ErrMalformedRecord, wantID, dto.Metadata.MatchID)
	}
	return domain.Timeline{
		MatchID:       dto.Metadata.MatchID,
		DataVersion:   dto.Metadata.DataVersion,
		FrameInterval: dto.Info.FrameInterval,
		Raw:           body,
	}, nil
}

func (p ParticipantDTO) toDomain(matchID string) domain.Participant {
	name := p.SummonerName
	if name == "" {
		name = p.RiotIDGameName
	}
	out := domain.Participant{
		MatchID:              matchID,
		Puuid:                p.Puuid,
		SummonerName:         name,
		TeamID:               p.TeamID,
		ChampionID:           p.ChampionID,
		ChampionName:         p.ChampionName,
		Role:                 p.Role,
		Lane:                 p.Lane,
		Kills:                p.Kills,
		Deaths:               p.Deaths,
		Assists:              p.Assists,
		Win:                  p.Win,
		GoldEarned:           p.GoldEarned,
		TotalMinionsKilled:   p.TotalMinionsKilled,
		NeutralMinionsKilled: p.NeutralMinionsKilled,
		DamageToChampions:    p.TotalDamageDealtToChampions,
		Items:                [7]*int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6},
		Spell1:               p.Summoner1ID,
		Spell2:               p.Summoner2ID,
	}
	if len(p.Perks.Styles) > 0 {
		v := p.Perks.Styles[0].Style
		out.PerkPrimaryStyle = &v
	}
	if len(p.Perks.Styles) > 1 {
		v := p.Perks.Styles[1].Style
		out.PerkSubStyle = &v
	}
	return out
}
