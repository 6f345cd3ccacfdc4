package service

import (
	"errors"
	"fmt"

	"mtglog/app/utils/jsonhelper"
)

// KeyPoints 第一阶段输出
type KeyPoints struct {
	KeyPoints []string `json:"key_points"`
}

// Section 章节
type Section struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Sections 第二阶段输出
type Sections struct {
	Sections []Section `json:"sections"`
}

// Speaker 话者摘要
type Speaker struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Speakers 第三阶段输出
type Speakers struct {
	Speakers []Speaker `json:"speakers"`
}

var errMissingField = errors.New("JSON 缺少必需字段")

func decodeKeyPoints(raw string) ([]byte, error) {
	var out KeyPoints
	b, err := jsonhelper.Decode(raw, &out)
	if err != nil {
		return nil, err
	}
	if out.KeyPoints == nil {
		return nil, fmt.Errorf("%w: key_points", errMissingField)
	}
	return b, nil
}

func decodeSections(raw string) ([]byte, error) {
	var out Sections
	b, err := jsonhelper.Decode(raw, &out)
	if err != nil {
		return nil, err
	}
	if out.Sections == nil {
		return nil, fmt.Errorf("%w: sections", errMissingField)
	}
	return b, nil
}

func decodeSpeakers(raw string) ([]byte, error) {
	var out Speakers
	b, err := jsonhelper.Decode(raw, &out)
	if err != nil {
		return nil, err
	}
	if out.Speakers == nil {
		return nil, fmt.Errorf("%w: speakers", errMissingField)
	}
	return b, nil
}
